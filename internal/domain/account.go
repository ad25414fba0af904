package domain

import (
	"math"
	"sync"
	"sync/atomic"
)

// ============================================================
// Accounts
// ============================================================

// AccountType distinguishes plain saving accounts from checking accounts
// that carry an overdraft allowance.
type AccountType string

const (
	AccountTypeSaving   AccountType = "saving"
	AccountTypeChecking AccountType = "checking"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeSaving || t == AccountTypeChecking
}

// accountSeq orders accounts for lock acquisition; it never changes after
// construction, unlike the user-visible ID.
var accountSeq atomic.Uint64

// Account holds a balance and, for checking accounts, an overdraft limit.
// All methods are safe for concurrent use.
type Account struct {
	mu        sync.Mutex
	seq       uint64
	id        int
	kind      AccountType
	balance   float64
	overdraft float64
}

// NewSavingAccount creates a plain account without overdraft.
func NewSavingAccount(id int, balance float64) (*Account, error) {
	return newAccount(id, AccountTypeSaving, balance, 0)
}

// NewCheckingAccount creates an account allowed to go down to -overdraft.
func NewCheckingAccount(id int, balance, overdraft float64) (*Account, error) {
	return newAccount(id, AccountTypeChecking, balance, overdraft)
}

// NewAccount creates an account of the given type. The overdraft is ignored
// for saving accounts.
func NewAccount(id int, kind AccountType, balance, overdraft float64) (*Account, error) {
	if !kind.Valid() {
		return nil, &ErrValidation{Field: "type", Message: "must be 'saving' or 'checking'"}
	}
	if kind == AccountTypeSaving {
		overdraft = 0
	}
	return newAccount(id, kind, balance, overdraft)
}

func newAccount(id int, kind AccountType, balance, overdraft float64) (*Account, error) {
	if balance < 0 || !isFinite(balance) {
		return nil, &ErrValidation{Field: "balance", Message: "must be a non-negative amount"}
	}
	if overdraft < 0 || !isFinite(overdraft) {
		return nil, &ErrValidation{Field: "overdraft", Message: "must be a non-negative amount"}
	}
	return &Account{
		seq:       accountSeq.Add(1),
		id:        id,
		kind:      kind,
		balance:   balance,
		overdraft: overdraft,
	}, nil
}

// ID returns the account identifier.
func (a *Account) ID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// SetID reassigns the account identifier.
func (a *Account) SetID(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = id
}

// Type returns the account type.
func (a *Account) Type() AccountType {
	return a.kind
}

// Balance returns the current balance.
func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Overdraft reports the overdraft limit. ok is false for accounts that do
// not support overdraft at all.
func (a *Account) Overdraft() (limit float64, ok bool) {
	if a.kind != AccountTypeChecking {
		return 0, false
	}
	return a.overdraft, true
}

// MaximumAmountToWithdraw is the largest amount Withdraw would accept.
func (a *Account) MaximumAmountToWithdraw() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance + a.overdraft
}

// Deposit adds amount to the balance and returns the new balance.
func (a *Account) Deposit(amount float64) (float64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	return a.balance, nil
}

// Withdraw removes amount from the balance and returns the new balance.
// The balance is left untouched when the withdrawal is rejected.
func (a *Account) Withdraw(amount float64) (float64, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkFunds(amount); err != nil {
		return a.balance, err
	}
	a.balance -= amount
	return a.balance, nil
}

// checkFunds must be called with a.mu held.
func (a *Account) checkFunds(amount float64) error {
	if a.balance-amount < -a.overdraft {
		return &ErrInsufficientFunds{
			AccountID: a.id,
			Available: a.balance,
			Required:  amount,
			Overdraft: a.overdraft,
		}
	}
	return nil
}

// Transfer moves amount from one account to another as a single step:
// either both balances change or neither does. Both accounts are locked in
// construction order so opposite transfers cannot deadlock.
func Transfer(from, to *Account, amount float64) (fromBalance, toBalance float64, err error) {
	if err := validateAmount(amount); err != nil {
		return 0, 0, err
	}
	if from == to {
		return 0, 0, &ErrValidation{Field: "to", Message: "source and destination accounts must differ"}
	}

	first, second := from, to
	if second.seq < first.seq {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if err := from.checkFunds(amount); err != nil {
		return from.balance, to.balance, err
	}
	from.balance -= amount
	to.balance += amount
	return from.balance, to.balance, nil
}

// AccountView is a point-in-time, serialisable copy of an account.
type AccountView struct {
	ID                      int         `json:"id"`
	Type                    AccountType `json:"type"`
	Balance                 float64     `json:"balance"`
	Overdraft               *float64    `json:"overdraft,omitempty"`
	MaximumAmountToWithdraw float64     `json:"maximum_amount_to_withdraw"`
}

// View returns a consistent snapshot of the account.
func (a *Account) View() AccountView {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := AccountView{
		ID:                      a.id,
		Type:                    a.kind,
		Balance:                 a.balance,
		MaximumAmountToWithdraw: a.balance + a.overdraft,
	}
	if a.kind == AccountTypeChecking {
		od := a.overdraft
		v.Overdraft = &od
	}
	return v
}

// ResolveAccount makes an Account usable wherever a Target is expected.
func (a *Account) ResolveAccount() (*Account, error) {
	return a, nil
}

// ClientName is empty for an account addressed directly.
func (a *Account) ClientName() string {
	return ""
}

func validateAmount(amount float64) error {
	if !isFinite(amount) || amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
