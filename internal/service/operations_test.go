package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/service"

	"go.uber.org/zap"
)

type fixture struct {
	banking *service.Banking
	audit   *service.AuditService
	ops     *service.Operations
	client  *domain.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	banking := service.NewBanking(logger)
	if err := service.SeedDemoData(banking); err != nil {
		t.Fatalf("seed: %v", err)
	}
	audit := service.NewAuditService(metrics, logger)

	client, err := banking.GetClient("Jonny Bravo")
	if err != nil {
		t.Fatalf("expected seeded client, got %v", err)
	}
	client.SetDefaultActiveAccountIfNotSet()
	active, err := client.ActiveAccount()
	if err != nil {
		t.Fatalf("expected active account, got %v", err)
	}
	active.SetID(999)

	return &fixture{
		banking: banking,
		audit:   audit,
		ops:     service.NewOperations(audit, metrics, logger),
		client:  client,
	}
}

func (f *fixture) activeAccount(t *testing.T) *domain.Account {
	t.Helper()
	acc, err := f.client.ActiveAccount()
	if err != nil {
		t.Fatalf("active account: %v", err)
	}
	return acc
}

func lastKinds(events []domain.AuditEvent, n int) []domain.EventKind {
	out := make([]domain.EventKind, 0, n)
	for _, e := range events[len(events)-n:] {
		out = append(out, e.Kind)
	}
	return out
}

func TestDeposit_ToClient(t *testing.T) {
	f := newFixture(t)
	before := f.audit.Len()

	if _, err := f.ops.Deposit(context.Background(), f.client, 100); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	events := f.audit.Events()
	if len(events) != before+1 {
		t.Fatalf("expected %d events, got %d", before+1, len(events))
	}
	last := events[len(events)-1]
	if last.Kind != domain.EventDeposit {
		t.Errorf("expected deposit event, got %s", last.Kind)
	}
	if last.AccountID != 999 || last.ClientName != "Jonny Bravo" {
		t.Errorf("unexpected event target: account=%d client=%q", last.AccountID, last.ClientName)
	}
}

func TestDeposit_ToAccount(t *testing.T) {
	f := newFixture(t)
	acc := f.activeAccount(t)
	startBalance := acc.Balance()
	before := f.audit.Len()

	balance, err := f.ops.Deposit(context.Background(), acc, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if balance != startBalance+100 || acc.Balance() != startBalance+100 {
		t.Errorf("expected balance %.2f, got %.2f", startBalance+100, acc.Balance())
	}
	events := f.audit.Events()
	if len(events) != before+1 {
		t.Fatalf("expected %d events, got %d", before+1, len(events))
	}
	if events[len(events)-1].Kind != domain.EventDeposit {
		t.Errorf("expected deposit event, got %s", events[len(events)-1].Kind)
	}
	if events[len(events)-1].ClientName != "" {
		t.Errorf("expected no client name for direct account deposit")
	}
}

func TestDeposit_InvalidAmountRecordsNothing(t *testing.T) {
	f := newFixture(t)
	before := f.audit.Len()

	for _, amount := range []float64{0, -5} {
		_, err := f.ops.Deposit(context.Background(), f.client, amount)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Fatalf("amount=%v: expected validation error, got %v", amount, err)
		}
	}
	if f.audit.Len() != before {
		t.Errorf("expected no new events, got %d", f.audit.Len()-before)
	}
}

func TestGetBalance_Client(t *testing.T) {
	f := newFixture(t)
	before := f.audit.Len()

	balance, err := f.ops.GetBalance(context.Background(), f.client)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if balance != f.activeAccount(t).Balance() {
		t.Errorf("expected balance %.2f, got %.2f", f.activeAccount(t).Balance(), balance)
	}

	events := f.audit.Events()
	if len(events) != before+1 {
		t.Fatalf("expected %d events, got %d", before+1, len(events))
	}
	if events[len(events)-1].Kind != domain.EventBalance {
		t.Errorf("expected balance event, got %s", events[len(events)-1].Kind)
	}
}

func TestWithdraw_FromClientAndAccount(t *testing.T) {
	f := newFixture(t)
	targets := map[string]domain.Target{
		"client":  f.client,
		"account": f.activeAccount(t),
	}

	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			before := f.audit.Len()
			startBalance := f.activeAccount(t).Balance()

			balance, err := f.ops.Withdraw(context.Background(), target, 100)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if balance != startBalance-100 {
				t.Errorf("expected balance %.2f, got %.2f", startBalance-100, balance)
			}

			events := f.audit.Events()
			if len(events) != before+2 {
				t.Fatalf("expected %d events, got %d", before+2, len(events))
			}
			for _, k := range lastKinds(events, 2) {
				if k != domain.EventWithdraw {
					t.Errorf("expected withdraw event, got %s", k)
				}
			}
			if events[len(events)-2].Stage != domain.StageAttempted || events[len(events)-1].Stage != domain.StageSucceeded {
				t.Errorf("unexpected stages: %s, %s", events[len(events)-2].Stage, events[len(events)-1].Stage)
			}
		})
	}
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	acc := f.activeAccount(t)
	balance := acc.Balance()
	overdraft, _ := acc.Overdraft()
	before := f.audit.Len()

	_, err := f.ops.Withdraw(context.Background(), acc, balance+overdraft+1000)

	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}
	if acc.Balance() != balance {
		t.Errorf("expected balance unchanged at %.2f, got %.2f", balance, acc.Balance())
	}

	events := f.audit.Events()
	if len(events) != before+2 {
		t.Fatalf("expected %d events, got %d", before+2, len(events))
	}
	last := events[len(events)-1]
	if events[len(events)-2].Kind != domain.EventWithdraw || last.Kind != domain.EventWithdraw {
		t.Errorf("expected two withdraw events, got %v", lastKinds(events, 2))
	}
	if last.Stage != domain.StageFailed || last.Error == "" {
		t.Errorf("expected failed stage with error, got stage=%s error=%q", last.Stage, last.Error)
	}
}

func TestWithdraw_CheckingAccountUsesOverdraft(t *testing.T) {
	f := newFixture(t)
	checking, err := f.client.Account(2)
	if err != nil {
		t.Fatalf("expected checking account, got %v", err)
	}
	limit, ok := checking.Overdraft()
	if !ok || limit != 100 {
		t.Fatalf("expected overdraft 100, got %v (ok=%v)", limit, ok)
	}

	balance, err := f.ops.Withdraw(context.Background(), checking, 1100)
	if err != nil {
		t.Fatalf("expected withdrawal within overdraft, got %v", err)
	}
	if balance != -100 {
		t.Errorf("expected balance -100, got %.2f", balance)
	}

	if _, err := f.ops.Withdraw(context.Background(), checking, 1); err == nil {
		t.Fatal("expected overdraft limit to be enforced")
	}
}

func TestWithdraw_InvalidAmountStillRecordsTwoEvents(t *testing.T) {
	f := newFixture(t)
	before := f.audit.Len()

	_, err := f.ops.Withdraw(context.Background(), f.client, -1)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.audit.Len() != before+2 {
		t.Errorf("expected 2 new events, got %d", f.audit.Len()-before)
	}
}

func TestOperations_ClientWithoutAccounts(t *testing.T) {
	f := newFixture(t)
	empty, _ := domain.NewClient("Nobody", "")
	before := f.audit.Len()

	_, err := f.ops.Withdraw(context.Background(), empty, 10)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := f.ops.GetBalance(context.Background(), empty); err == nil {
		t.Fatal("expected error for client without accounts")
	}
	if f.audit.Len() != before {
		t.Errorf("expected no events when the target cannot be resolved")
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	adam, err := f.banking.GetClient("Adam Budzinski")
	if err != nil {
		t.Fatal(err)
	}
	before := f.audit.Len()

	res, err := f.ops.Transfer(context.Background(), f.client, adam, 250)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.FromBalance != 750 || res.ToBalance != 1750 {
		t.Errorf("unexpected balances: from=%.2f to=%.2f", res.FromBalance, res.ToBalance)
	}
	if f.audit.Len() != before+1 {
		t.Fatalf("expected 1 new event, got %d", f.audit.Len()-before)
	}
	last := f.audit.Events()[f.audit.Len()-1]
	if last.Kind != domain.EventTransfer || last.AccountID != 999 || last.CounterAccountID != 3 {
		t.Errorf("unexpected transfer event: %+v", last)
	}
}

func TestTransfer_Failures(t *testing.T) {
	f := newFixture(t)
	adam, _ := f.banking.GetClient("Adam Budzinski")
	before := f.audit.Len()

	var insufficient *domain.ErrInsufficientFunds
	if _, err := f.ops.Transfer(context.Background(), f.client, adam, 5000); !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	var validation *domain.ErrValidation
	if _, err := f.ops.Transfer(context.Background(), f.client, f.activeAccount(t), 1); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for same account, got %v", err)
	}
	if f.audit.Len() != before {
		t.Errorf("expected no events for failed transfers")
	}
	if f.activeAccount(t).Balance() != 1000 {
		t.Errorf("expected source balance unchanged")
	}
}
