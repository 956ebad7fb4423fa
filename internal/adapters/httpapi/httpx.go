package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type ctxKey int

const requestIDKey ctxKey = iota

func newRequestID() string {
	return uuid.NewString()
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// errorResponse keeps the safe default payload next to the error so clients
// can render an empty list instead of failing.
type errorResponse struct {
	RequestID      string           `json:"request_id"`
	Companies      []domain.Account `json:"companies"`
	RemainingQuota int              `json:"remaining_quota"`
	Error          errorBody        `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, retryable bool) {
	writeJSON(w, status, errorResponse{
		RequestID:      requestIDFrom(r.Context()),
		Companies:      []domain.Account{},
		RemainingQuota: 0,
		Error:          errorBody{Code: code, Message: message, Retryable: retryable},
	})
}

// classify maps service errors onto a status, error code and public message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST", err.Error()
	case errors.Is(err, domain.ErrAllocationNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "account catalog unavailable, retry later"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "allocation store unavailable, retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT", "request timed out, retry later"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
