package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidID             = "invalid_id"
	codeInvalidAmount         = "invalid_amount"
	codeInvalidKeyValue       = "invalid_key_value"
	codeInvalidCount          = "invalid_count"
	codeInvalidFormat         = "invalid_format"
	codeInvalidLimit          = "invalid_limit"
	codeOrderNotFound         = "order_not_found"
	codeKeyNotFound           = "key_not_found"
	codeDuplicateKey          = "duplicate_key"
	codeOrderAlreadyConfirmed = "order_already_confirmed"
	codeNoKeysAvailable       = "no_keys_available"
	codeInvalidTransition     = "invalid_transition"
	codeUnauthorized          = "unauthorized"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors to responses. Anything unrecognised is
// logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidKeyValue):
		writeError(w, http.StatusBadRequest, codeInvalidKeyValue, err.Error())
	case errors.Is(err, domain.ErrInvalidCount):
		writeError(w, http.StatusBadRequest, codeInvalidCount, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, codeKeyNotFound, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateKey):
		writeError(w, http.StatusConflict, codeDuplicateKey, err.Error())
	case errors.Is(err, domain.ErrOrderAlreadyConfirmed):
		writeError(w, http.StatusConflict, codeOrderAlreadyConfirmed, err.Error())
	case errors.Is(err, domain.ErrNoKeyAvailable):
		writeError(w, http.StatusConflict, codeNoKeysAvailable, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	default:
		if logger != nil {
			logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
