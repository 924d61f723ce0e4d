package transport

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/observability"
)

// Issue describes one problem with a request field.
type Issue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ErrorResponse struct {
	Error   string  `json:"error"`
	Message string  `json:"message"`
	Details []Issue `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.Log.Error("failed to encode response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

func WriteValidationError(w http.ResponseWriter, message string, details ...Issue) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_message",
		Message: message,
		Details: details,
	})
}
