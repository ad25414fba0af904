package domain_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/boddenberg/bankapp-go/internal/domain"
)

func TestAccount_DepositWithdraw(t *testing.T) {
	acc, err := domain.NewSavingAccount(1, 100)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := acc.Deposit(50); err != nil {
		t.Fatal(err)
	}
	if _, err := acc.Withdraw(30); err != nil {
		t.Fatal(err)
	}
	if acc.Balance() != 120 {
		t.Fatalf("balance=%.2f want=120", acc.Balance())
	}

	var validation *domain.ErrValidation
	for _, amt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := acc.Deposit(amt); !errors.As(err, &validation) {
			t.Errorf("deposit %v: expected validation error, got %v", amt, err)
		}
		if _, err := acc.Withdraw(amt); !errors.As(err, &validation) {
			t.Errorf("withdraw %v: expected validation error, got %v", amt, err)
		}
	}

	var insufficient *domain.ErrInsufficientFunds
	if _, err := acc.Withdraw(121); !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if insufficient.Available != 120 || insufficient.Required != 121 {
		t.Errorf("unexpected error details: %+v", insufficient)
	}
	if acc.Balance() != 120 {
		t.Errorf("rejected withdrawal changed balance to %.2f", acc.Balance())
	}
}

func TestAccount_OverdraftCapability(t *testing.T) {
	saving, _ := domain.NewSavingAccount(1, 10)
	if _, ok := saving.Overdraft(); ok {
		t.Error("saving account should not report an overdraft")
	}

	checking, err := domain.NewCheckingAccount(2, 10, 50)
	if err != nil {
		t.Fatal(err)
	}
	limit, ok := checking.Overdraft()
	if !ok || limit != 50 {
		t.Fatalf("expected overdraft 50, got %v (ok=%v)", limit, ok)
	}
	if checking.MaximumAmountToWithdraw() != 60 {
		t.Errorf("expected max withdraw 60, got %.2f", checking.MaximumAmountToWithdraw())
	}
	if _, err := checking.Withdraw(60); err != nil {
		t.Fatalf("expected withdrawal down to -overdraft, got %v", err)
	}
	if checking.Balance() != -50 {
		t.Errorf("expected -50, got %.2f", checking.Balance())
	}
}

func TestAccount_ConstructorValidation(t *testing.T) {
	if _, err := domain.NewSavingAccount(1, -1); err == nil {
		t.Error("expected negative balance to be rejected")
	}
	if _, err := domain.NewCheckingAccount(1, 0, -5); err == nil {
		t.Error("expected negative overdraft to be rejected")
	}
	acc, err := domain.NewAccount(1, domain.AccountTypeSaving, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if acc.MaximumAmountToWithdraw() != 0 {
		t.Error("saving account must ignore overdraft")
	}
}

func TestTransfer_Atomic(t *testing.T) {
	a, _ := domain.NewSavingAccount(1, 1000)
	b, _ := domain.NewSavingAccount(2, 1000)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := domain.Transfer(a, b, 1); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := domain.Transfer(b, a, 1); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	if total := a.Balance() + b.Balance(); total != 2000 {
		t.Fatalf("total=%.2f want 2000", total)
	}
}

func TestTransfer_InsufficientLeavesBothUntouched(t *testing.T) {
	a, _ := domain.NewSavingAccount(1, 10)
	b, _ := domain.NewSavingAccount(2, 0)

	if _, _, err := domain.Transfer(a, b, 11); err == nil {
		t.Fatal("expected error")
	}
	if a.Balance() != 10 || b.Balance() != 0 {
		t.Fatalf("balances changed: a=%.2f b=%.2f", a.Balance(), b.Balance())
	}
}
