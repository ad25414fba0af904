package service

import (
	"context"
	"time"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/infra/observability"
	"github.com/boddenberg/bankapp-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var opsTracer = otel.Tracer("service/operations")

// Operations applies deposits, withdrawals, balance queries and transfers to
// accounts and writes every step to the audit trail.
type Operations struct {
	audit   port.AuditRecorder
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewOperations creates the operations service with all dependencies injected.
func NewOperations(audit port.AuditRecorder, metrics *observability.Metrics, logger *zap.Logger) *Operations {
	return &Operations{audit: audit, metrics: metrics, logger: logger}
}

// TransferResult carries both balances after a transfer.
type TransferResult struct {
	FromAccountID int     `json:"from_account_id"`
	ToAccountID   int     `json:"to_account_id"`
	Amount        float64 `json:"amount"`
	FromBalance   float64 `json:"from_balance"`
	ToBalance     float64 `json:"to_balance"`
}

// Deposit adds amount to the target account and records one deposit event.
// A rejected amount records nothing.
func (s *Operations) Deposit(ctx context.Context, target domain.Target, amount float64) (balance float64, err error) {
	ctx, span := opsTracer.Start(ctx, "Operations.Deposit")
	defer span.End()
	defer s.observe(span, observability.OpDeposit, time.Now(), &err)

	acc, err := target.ResolveAccount()
	if err != nil {
		return 0, err
	}
	id := acc.ID()
	span.SetAttributes(attribute.Int("account.id", id), attribute.Float64("amount", amount))

	balance, err = acc.Deposit(amount)
	if err != nil {
		return 0, err
	}
	s.audit.RecordEvent(ctx, domain.NewDepositEvent(id, target.ClientName(), amount, balance))

	s.logger.Info("deposit",
		zap.Int("account_id", id),
		zap.String("client", target.ClientName()),
		zap.Float64("amount", amount),
		zap.Float64("balance", balance),
	)
	return balance, nil
}

// GetBalance reads the target account's balance and records one balance event.
func (s *Operations) GetBalance(ctx context.Context, target domain.Target) (balance float64, err error) {
	ctx, span := opsTracer.Start(ctx, "Operations.GetBalance")
	defer span.End()
	defer s.observe(span, observability.OpBalance, time.Now(), &err)

	acc, err := target.ResolveAccount()
	if err != nil {
		return 0, err
	}
	id := acc.ID()
	span.SetAttributes(attribute.Int("account.id", id))

	balance = acc.Balance()
	s.audit.RecordEvent(ctx, domain.NewBalanceEvent(id, target.ClientName(), balance))
	return balance, nil
}

// Withdraw removes amount from the target account. Every attempt records
// two withdraw events: one before the account is touched and one with the
// outcome. A failure is returned unchanged after the second event.
func (s *Operations) Withdraw(ctx context.Context, target domain.Target, amount float64) (balance float64, err error) {
	ctx, span := opsTracer.Start(ctx, "Operations.Withdraw")
	defer span.End()
	defer s.observe(span, observability.OpWithdraw, time.Now(), &err)

	acc, err := target.ResolveAccount()
	if err != nil {
		return 0, err
	}
	id := acc.ID()
	client := target.ClientName()
	span.SetAttributes(attribute.Int("account.id", id), attribute.Float64("amount", amount))

	s.audit.RecordEvent(ctx, domain.NewWithdrawEvent(domain.StageAttempted, id, client, amount, acc.Balance(), nil))

	balance, err = acc.Withdraw(amount)
	if err != nil {
		s.audit.RecordEvent(ctx, domain.NewWithdrawEvent(domain.StageFailed, id, client, amount, acc.Balance(), err))
		s.logger.Warn("withdraw rejected",
			zap.Int("account_id", id),
			zap.String("client", client),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return acc.Balance(), err
	}
	s.audit.RecordEvent(ctx, domain.NewWithdrawEvent(domain.StageSucceeded, id, client, amount, balance, nil))

	s.logger.Info("withdraw",
		zap.Int("account_id", id),
		zap.String("client", client),
		zap.Float64("amount", amount),
		zap.Float64("balance", balance),
	)
	return balance, nil
}

// Transfer moves amount between two targets atomically and records one
// transfer event on success.
func (s *Operations) Transfer(ctx context.Context, from, to domain.Target, amount float64) (res *TransferResult, err error) {
	ctx, span := opsTracer.Start(ctx, "Operations.Transfer")
	defer span.End()
	defer s.observe(span, observability.OpTransfer, time.Now(), &err)

	src, err := from.ResolveAccount()
	if err != nil {
		return nil, err
	}
	dst, err := to.ResolveAccount()
	if err != nil {
		return nil, err
	}
	srcID, dstID := src.ID(), dst.ID()
	span.SetAttributes(
		attribute.Int("account.from", srcID),
		attribute.Int("account.to", dstID),
		attribute.Float64("amount", amount),
	)

	fromBalance, toBalance, err := domain.Transfer(src, dst, amount)
	if err != nil {
		return nil, err
	}
	s.audit.RecordEvent(ctx, domain.NewTransferEvent(srcID, dstID, from.ClientName(), amount, fromBalance))

	s.logger.Info("transfer",
		zap.Int("from_account_id", srcID),
		zap.Int("to_account_id", dstID),
		zap.Float64("amount", amount),
	)
	return &TransferResult{
		FromAccountID: srcID,
		ToAccountID:   dstID,
		Amount:        amount,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}, nil
}

func (s *Operations) observe(span trace.Span, op string, start time.Time, errp *error) {
	err := *errp
	s.metrics.RecordOperation(op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
