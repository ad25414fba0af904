package domain

import (
	"fmt"
	"time"
)

// ============================================================
// Audit events
// ============================================================

// EventKind is the discriminant of AuditEvent.
type EventKind string

const (
	EventDeposit  EventKind = "deposit"
	EventWithdraw EventKind = "withdraw"
	EventBalance  EventKind = "balance"
	EventTransfer EventKind = "transfer"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventDeposit, EventWithdraw, EventBalance, EventTransfer:
		return true
	}
	return false
}

// WithdrawStage tells the two withdraw events of one attempt apart.
type WithdrawStage string

const (
	StageAttempted WithdrawStage = "attempted"
	StageSucceeded WithdrawStage = "succeeded"
	StageFailed    WithdrawStage = "failed"
)

// AuditEvent is an immutable record of one banking operation step.
// Stage is set only for withdraw events, CounterAccountID only for transfers.
type AuditEvent struct {
	ID               string        `json:"id"`
	Kind             EventKind     `json:"kind"`
	Stage            WithdrawStage `json:"stage,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	AccountID        int           `json:"account_id"`
	CounterAccountID int           `json:"counter_account_id,omitempty"`
	ClientName       string        `json:"client_name,omitempty"`
	Amount           float64       `json:"amount,omitempty"`
	Balance          float64       `json:"balance"`
	Error            string        `json:"error,omitempty"`
}

// NewDepositEvent records a completed deposit.
func NewDepositEvent(accountID int, client string, amount, balance float64) AuditEvent {
	return AuditEvent{Kind: EventDeposit, AccountID: accountID, ClientName: client, Amount: amount, Balance: balance}
}

// NewBalanceEvent records a balance query.
func NewBalanceEvent(accountID int, client string, balance float64) AuditEvent {
	return AuditEvent{Kind: EventBalance, AccountID: accountID, ClientName: client, Balance: balance}
}

// NewWithdrawEvent records one stage of a withdraw attempt. cause is only
// kept for the failed stage.
func NewWithdrawEvent(stage WithdrawStage, accountID int, client string, amount, balance float64, cause error) AuditEvent {
	e := AuditEvent{Kind: EventWithdraw, Stage: stage, AccountID: accountID, ClientName: client, Amount: amount, Balance: balance}
	if stage == StageFailed && cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// NewTransferEvent records a completed transfer from accountID to counterID.
func NewTransferEvent(accountID, counterID int, client string, amount, balance float64) AuditEvent {
	return AuditEvent{Kind: EventTransfer, AccountID: accountID, CounterAccountID: counterID, ClientName: client, Amount: amount, Balance: balance}
}

// Validate checks the discriminant and the fields that depend on it.
func (e AuditEvent) Validate() error {
	if !e.Kind.Valid() {
		return &ErrValidation{Field: "kind", Message: fmt.Sprintf("unknown event kind %q", e.Kind)}
	}
	switch {
	case e.Kind == EventWithdraw && e.Stage == "":
		return &ErrValidation{Field: "stage", Message: "withdraw events require a stage"}
	case e.Kind != EventWithdraw && e.Stage != "":
		return &ErrValidation{Field: "stage", Message: "only withdraw events carry a stage"}
	}
	return nil
}
