package handler

import (
	"net/http"

	"github.com/boddenberg/bankapp-go/internal/domain"
	"github.com/boddenberg/bankapp-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Clients & Accounts Handlers
// ============================================================

type createClientRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type openAccountRequest struct {
	Type      domain.AccountType `json:"type"`
	Balance   float64            `json:"balance"`
	Overdraft float64            `json:"overdraft"`
}

type setActiveAccountRequest struct {
	AccountID int `json:"account_id"`
}

func listClientsHandler(banking *service.Banking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients := banking.Clients()
		out := make([]domain.ClientView, 0, len(clients))
		for _, c := range clients {
			out = append(out, c.View())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createClientHandler(banking *service.Banking, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createClientRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := domain.NewClient(req.Name, req.City)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := banking.AddClient(c); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c.View())
	}
}

func getClientHandler(banking *service.Banking, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := banking.GetClient(clientName(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c.View())
	}
}

func deleteClientHandler(banking *service.Banking, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := banking.DeleteClient(clientName(r)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func openAccountHandler(banking *service.Banking, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /clients/{name}/accounts")
		defer span.End()

		var req openAccountRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		acc, err := banking.OpenAccount(ctx, clientName(r), req.Type, req.Balance, req.Overdraft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, acc.View())
	}
}

func setActiveAccountHandler(banking *service.Banking, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setActiveAccountRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := banking.GetClient(clientName(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		acc, err := c.Account(req.AccountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := c.SetActiveAccount(acc); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c.View())
	}
}
