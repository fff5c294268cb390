package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/issues"
)

// Fixed client-facing error bodies. Causes are only logged.
const (
	bodyForbidden      = "forbidden"
	bodyInternalError  = "internal server error"
	bodyRequestTimeout = "request timeout"
)

// statusFor maps a service error to a response status and body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, issues.ErrForbidden):
		return http.StatusForbidden, bodyForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, bodyRequestTimeout
	default:
		return http.StatusInternalServerError, bodyInternalError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusRequestTimeout {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, body, status)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
