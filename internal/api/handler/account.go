package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerpay/transfer/internal/api/problem"
	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/service"
)

// AccountReader serves account reads; satisfied by *service.AccountService.
type AccountReader interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	GetStatement(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.LedgerEntry, error)
}

type AccountHandler struct {
	svc AccountReader
}

func NewAccountHandler(svc AccountReader) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GetBalance returns the account with its derived available balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("request/invalid-account-id"),
			http.StatusText(http.StatusBadRequest), "Invalid account id")
		return
	}

	account, err := h.svc.GetBalance(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"id":              account.ID,
		"currency":        account.Currency,
		"available_minor": account.Available,
	})
}

// GetStatement pages through the account's ledger entries.
func (h *AccountHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("request/invalid-account-id"),
			http.StatusText(http.StatusBadRequest), "Invalid account id")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	entries, err := h.svc.GetStatement(r.Context(), accountID, page, pageSize)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

var _ AccountReader = (*service.AccountService)(nil)
