package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/beachmessages/relay/internal/application"
	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/transport"
)

const maxBodyBytes = 16 << 10

// MessageService is the part of the application layer the HTTP surface needs.
type MessageService interface {
	CreateMessage(ctx context.Context, cmd application.CreateMessageCommand) (*domain.Message, error)
	MarkDelivered(ctx context.Context, id int64) (*domain.Message, error)
	ListPending(ctx context.Context) ([]*domain.Message, error)
	ListDelivered(ctx context.Context) ([]*domain.Message, error)
	ListAll(ctx context.Context) ([]*domain.Message, error)
}

type MessageHandler struct {
	svc MessageService
}

func NewMessageHandler(svc MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type createMessageRequest struct {
	Text       *string `json:"text"`
	SenderName *string `json:"senderName"`
}

// Create POST /api/messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteValidationError(w, "Invalid message data", decodeIssue(err))
		return
	}
	if req.Text == nil {
		transport.WriteValidationError(w, "Invalid message data",
			transport.Issue{Field: "text", Issue: domain.ErrEmptyText.Error()})
		return
	}

	cmd := application.CreateMessageCommand{Text: *req.Text}
	if req.SenderName != nil {
		cmd.SenderName = *req.SenderName
	}

	if err := domain.ValidateText(cmd.Text); err != nil {
		transport.WriteValidationError(w, "Invalid message data",
			transport.Issue{Field: "text", Issue: err.Error()})
		return
	}

	msg, err := h.svc.CreateMessage(r.Context(), cmd)
	if err != nil {
		transport.Error(r.Context(), w, err, "create message")
		return
	}

	transport.WriteJSON(w, http.StatusCreated, msg)
}

// Pending GET /api/messages/pending
func (h *MessageHandler) Pending(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListPending(r.Context())
	if err != nil {
		transport.Error(r.Context(), w, err, "list pending messages")
		return
	}
	writeList(w, msgs)
}

// Delivered GET /api/messages/delivered
func (h *MessageHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListDelivered(r.Context())
	if err != nil {
		transport.Error(r.Context(), w, err, "list delivered messages")
		return
	}
	writeList(w, msgs)
}

// All GET /api/messages
func (h *MessageHandler) All(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListAll(r.Context())
	if err != nil {
		transport.Error(r.Context(), w, err, "list messages")
		return
	}
	writeList(w, msgs)
}

// Deliver PATCH /api/messages/{id}/deliver
func (h *MessageHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		transport.Error(r.Context(), w, domain.ErrInvalidID, "mark delivered")
		return
	}

	msg, err := h.svc.MarkDelivered(r.Context(), id)
	if err != nil {
		transport.Error(r.Context(), w, err, "mark delivered")
		return
	}

	transport.WriteJSON(w, http.StatusOK, msg)
}

func writeList(w http.ResponseWriter, msgs []*domain.Message) {
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	transport.WriteJSON(w, http.StatusOK, msgs)
}

func decodeIssue(err error) transport.Issue {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return transport.Issue{Field: field, Issue: "expected " + typeErr.Type.String()}
	case errors.As(err, &maxErr):
		return transport.Issue{Field: "body", Issue: "request body too large"}
	default:
		return transport.Issue{Field: "body", Issue: "malformed JSON"}
	}
}
