package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/domain"
	"github.com/beachmessages/relay/internal/history"
	"github.com/beachmessages/relay/internal/observability"
	"github.com/beachmessages/relay/internal/peripheral"
	"github.com/beachmessages/relay/internal/relay"
	"github.com/beachmessages/relay/internal/transport"
)

type Peripheral interface {
	Snapshot() peripheral.Snapshot
	StartScan()
	StopScan()
	Connect()
	Disconnect()
	Send(ctx context.Context, text string) error
	Watch(ctx context.Context) <-chan peripheral.State
}

type Relay interface {
	DeliverOne(ctx context.Context, msg *domain.Message) error
	DeliverAll(ctx context.Context) (relay.Report, error)
	Lookup(id int64) (*domain.Message, bool)
	Pending() []*domain.Message
}

// Handler is the relay operator's local control surface.
type Handler struct {
	peripheral Peripheral
	relay      Relay
	history    history.Store
}

func NewHandler(p Peripheral, r Relay, h history.Store) *Handler {
	return &Handler{peripheral: p, relay: r, history: h}
}

// Status GET /peripheral
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, h.peripheral.Snapshot())
}

// Scan POST /peripheral/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	h.peripheral.StartScan()
	transport.WriteJSON(w, http.StatusAccepted, h.peripheral.Snapshot())
}

// StopScan POST /peripheral/stop
func (h *Handler) StopScan(w http.ResponseWriter, r *http.Request) {
	h.peripheral.StopScan()
	transport.WriteJSON(w, http.StatusOK, h.peripheral.Snapshot())
}

// Connect POST /peripheral/connect
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	h.peripheral.Connect()
	transport.WriteJSON(w, http.StatusAccepted, h.peripheral.Snapshot())
}

// Disconnect POST /peripheral/disconnect
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.peripheral.Disconnect()
	transport.WriteJSON(w, http.StatusOK, h.peripheral.Snapshot())
}

type sendResponse struct {
	Sent  bool           `json:"sent"`
	Entry *history.Entry `json:"entry"`
}

// Send POST /peripheral/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		transport.WriteValidationError(w, "Invalid message data", transport.Issue{Field: "body", Issue: "malformed JSON"})
		return
	}
	if err := domain.ValidateText(req.Text); err != nil {
		transport.WriteValidationError(w, "Invalid message data", transport.Issue{Field: "text", Issue: err.Error()})
		return
	}

	if err := h.peripheral.Send(r.Context(), req.Text); err != nil {
		writeSendError(r.Context(), w, err)
		return
	}

	resp := sendResponse{Sent: true}
	entry, err := h.history.Append(r.Context(), req.Text)
	if err != nil {
		observability.GetLogger(r.Context()).Warn("failed to record sent message", zap.Error(err))
	} else {
		resp.Entry = &entry
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// Pending GET /relay/pending
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	msgs := h.relay.Pending()
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	transport.WriteJSON(w, http.StatusOK, msgs)
}

// DeliverAll POST /relay/deliver-all
func (h *Handler) DeliverAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.relay.DeliverAll(r.Context())
	if err != nil {
		writeSendError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, report)
}

type deliverResponse struct {
	Delivered bool  `json:"delivered"`
	MessageID int64 `json:"messageId"`
}

// DeliverOne POST /relay/deliver/{id}
// The id must be in the pending list from the last poll.
func (h *Handler) DeliverOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		transport.Error(r.Context(), w, domain.ErrInvalidID, "deliver message")
		return
	}
	msg, ok := h.relay.Lookup(id)
	if !ok {
		transport.Error(r.Context(), w, domain.ErrMessageNotFound, "deliver message")
		return
	}
	if err := h.relay.DeliverOne(r.Context(), msg); err != nil {
		writeSendError(r.Context(), w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, deliverResponse{Delivered: true, MessageID: id})
}

// History GET /history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(r.Context())
	if err != nil {
		transport.Error(r.Context(), w, err, "list history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	transport.WriteJSON(w, http.StatusOK, entries)
}

// ClearHistory DELETE /history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		transport.Error(r.Context(), w, err, "clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSendError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, peripheral.ErrNotConnected):
		transport.WriteError(w, http.StatusConflict, "not_connected", "Not connected to device")
	case errors.Is(err, peripheral.ErrTransmissionFailed):
		transport.WriteError(w, http.StatusBadGateway, "transmission_failed", "Failed to send message")
	case errors.Is(err, peripheral.ErrPayloadTooLarge):
		transport.WriteValidationError(w, "Invalid message data", transport.Issue{Field: "text", Issue: err.Error()})
	default:
		transport.Error(ctx, w, err, "send to display")
	}
}
