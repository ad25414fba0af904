package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Deposit / Withdraw / Balance / Transfer Handlers
// ============================================================

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type balanceResponse struct {
	AccountID int     `json:"account_id"`
	Client    string  `json:"client,omitempty"`
	Balance   float64 `json:"balance"`
}

type transferRequest struct {
	FromClient string  `json:"from_client"`
	ToClient   string  `json:"to_client"`
	Amount     float64 `json:"amount"`
}

// targetResolver turns a request into the target of an operation. The
// target is pinned to one account so the response names the account the
// operation actually used.
type targetResolver func(r *http.Request) (domain.Target, error)

// clientTarget addresses the active account of the {name} client.
func clientTarget(banking *service.Banking) targetResolver {
	return func(r *http.Request) (domain.Target, error) {
		c, err := banking.GetClient(clientName(r))
		if err != nil {
			return nil, err
		}
		return domain.PinTarget(c)
	}
}

// accountTarget addresses account {accountId} of the {name} client.
func accountTarget(banking *service.Banking) targetResolver {
	return func(r *http.Request) (domain.Target, error) {
		c, err := banking.GetClient(clientName(r))
		if err != nil {
			return nil, err
		}
		id, err := accountIDParam(r)
		if err != nil {
			return nil, err
		}
		acc, err := c.Account(id)
		if err != nil {
			return nil, err
		}
		return acc, nil
	}
}

// respondBalance writes the balance of the account a pinned target names.
func respondBalance(w http.ResponseWriter, target domain.Target, balance float64, client string) {
	resp := balanceResponse{Client: client, Balance: balance}
	if acc, err := target.ResolveAccount(); err == nil {
		resp.AccountID = acc.ID()
	}
	writeJSON(w, http.StatusOK, resp)
}

func depositHandler(ops *service.Operations, resolve targetResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST deposit")
		defer span.End()

		var req amountRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		target, err := resolve(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Float64("amount", req.Amount))

		balance, err := ops.Deposit(ctx, target, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		respondBalance(w, target, balance, target.ClientName())
	}
}

func withdrawHandler(ops *service.Operations, resolve targetResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST withdraw")
		defer span.End()

		var req amountRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		target, err := resolve(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Float64("amount", req.Amount))

		balance, err := ops.Withdraw(ctx, target, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		respondBalance(w, target, balance, target.ClientName())
	}
}

func balanceHandler(ops *service.Operations, resolve targetResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET balance")
		defer span.End()

		target, err := resolve(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		balance, err := ops.GetBalance(ctx, target)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		respondBalance(w, target, balance, target.ClientName())
	}
}

func transferHandler(banking *service.Banking, ops *service.Operations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transfers")
		defer span.End()

		var req transferRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		from, err := banking.GetClient(req.FromClient)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := banking.GetClient(req.ToClient)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := ops.Transfer(ctx, from, to, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ============================================================
// Audit & Metrics Handlers
// ============================================================

func listAuditEventsHandler(audit *service.AuditService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := domain.EventKind(r.URL.Query().Get("kind"))
		if kind != "" && !kind.Valid() {
			handleServiceError(w, &domain.ErrValidation{Field: "kind", Message: "unknown event kind"}, logger)
			return
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				handleServiceError(w, &domain.ErrValidation{Field: "limit", Message: "must be a non-negative integer"}, logger)
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total":  audit.Len(),
			"events": audit.Filter(kind, limit),
		})
	}
}
