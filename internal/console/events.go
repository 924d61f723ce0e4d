package console

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/observability"
	"github.com/beachmessages/relay/internal/peripheral"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type stateEvent struct {
	State      peripheral.State `json:"state"`
	DeviceName string           `json:"deviceName"`
	Connected  bool             `json:"connected"`
}

// Events GET /peripheral/events streams every connection state change.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogger(r.Context())

	// the request context ends when this handler returns
	ctx, cancel := context.WithCancel(context.Background())
	states := h.peripheral.Watch(ctx)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Error("upgrade error", zap.Error(err))
		return
	}

	s := newSession(uuid.NewString(), conn)

	s.start()
	observability.ConsoleViewersActive.Inc()
	log.Info("console viewer connected", zap.String("session_id", s.id))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.forward(s, states)
	go h.readLoop(s, cancel)
}

func (h *Handler) forward(s *session, states <-chan peripheral.State) {
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return
			}
			snap := h.peripheral.Snapshot()
			payload, err := json.Marshal(stateEvent{
				State:      st,
				DeviceName: snap.DeviceName,
				Connected:  st == peripheral.Connected,
			})
			if err != nil {
				observability.Log.Error("failed to marshal state event", zap.Error(err))
				continue
			}
			if !s.trySend(payload) {
				return
			}
		case <-s.Done():
			return
		}
	}
}

func (h *Handler) readLoop(s *session, cancel context.CancelFunc) {
	defer func() {
		cancel()
		s.close()
		observability.ConsoleViewersActive.Dec()
		observability.Log.Info("console viewer disconnected", zap.String("session_id", s.id))
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				observability.Log.Debug("console read loop error", zap.String("session_id", s.id), zap.Error(err))
			}
			return
		}
	}
}
