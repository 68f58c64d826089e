package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerpay/transfer/internal/api/problem"
	"github.com/ledgerpay/transfer/internal/domain"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondDomainError maps the error taxonomy to HTTP statuses:
// invalid argument → 400, not found → 404, insufficient balance → 409,
// anything else → 500.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		problem.Write(w, r, http.StatusBadRequest,
			problem.Type("transfer/invalid-argument"),
			http.StatusText(http.StatusBadRequest), err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		problem.Write(w, r, http.StatusNotFound,
			problem.Type("account/not-found"),
			http.StatusText(http.StatusNotFound), err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		problem.Write(w, r, http.StatusConflict,
			problem.Type("transfer/insufficient-balance"),
			http.StatusText(http.StatusConflict), err.Error())
	default:
		problem.Write(w, r, http.StatusInternalServerError,
			problem.Type("internal-server-error"),
			http.StatusText(http.StatusInternalServerError), "transfer failed")
	}
}
