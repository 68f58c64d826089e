package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerpay/transfer/internal/api/problem"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/service"
)

// TransferService executes transfers; satisfied by *service.TransferEngine.
type TransferService interface {
	Transfer(ctx context.Context, cmd service.TransferCommand) (*models.TransferResult, error)
}

type TransferHandler struct {
	engine TransferService
}

func NewTransferHandler(engine TransferService) *TransferHandler {
	return &TransferHandler{engine: engine}
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	AmountMinor   int64  `json:"amount_minor"`
}

// Create executes one transfer. The Idempotency-Key header is mandatory:
// replays with the same key return the original result.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("idempotency/missing-key"),
			http.StatusText(http.StatusBadRequest),
			"Idempotency-Key header is required")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("request/invalid-body"),
			http.StatusText(http.StatusBadRequest), "Invalid request body")
		return
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("request/invalid-account-id"),
			http.StatusText(http.StatusBadRequest), "Invalid from_account_id")
		return
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("request/invalid-account-id"),
			http.StatusText(http.StatusBadRequest), "Invalid to_account_id")
		return
	}

	result, err := h.engine.Transfer(r.Context(), service.TransferCommand{
		FromAccountID:  fromID,
		ToAccountID:    toID,
		AmountMinor:    req.AmountMinor,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

var _ TransferService = (*service.TransferEngine)(nil)
