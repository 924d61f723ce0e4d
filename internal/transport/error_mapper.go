package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/observability"
)

// MapError converts a domain error into a status code, error code and a
// caller-safe message. Unknown errors never leak their text.
func MapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrMessageNotFound):
		return http.StatusNotFound, "not_found", "Message not found"

	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id", "Invalid message ID"

	case errors.Is(err, domain.ErrEmptyText),
		errors.Is(err, domain.ErrTextTooLong),
		errors.Is(err, domain.ErrInvalidMessage):
		return http.StatusBadRequest, "invalid_message", "Invalid message data"

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"

	default:
		return http.StatusInternalServerError, "internal_error", "an unexpected error occurred"
	}
}

// Error logs err with the request's trace context and writes the mapped
// response. Server errors are logged at error level, the rest at debug.
func Error(ctx context.Context, w http.ResponseWriter, err error, op string) {
	status, code, msg := MapError(err)

	log := observability.GetLogger(ctx)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err), zap.Int("status", status))
	} else {
		log.Debug(op+" rejected", zap.Error(err), zap.Int("status", status))
	}

	WriteError(w, status, code, msg)
}
