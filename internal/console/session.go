package console

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/observability"
)

const (
	sendQueueSize = 32
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// session is one websocket viewer of the connection state.
type session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Int32
}

func newSession(id string, conn *websocket.Conn) *session {
	return &session{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (s *session) start() {
	go s.writeLoop()
}

func (s *session) Done() <-chan struct{} {
	return s.done
}

// trySend queues msg, dropping the viewer if it has fallen too far behind.
func (s *session) trySend(msg []byte) bool {
	if s.closed.Load() == 1 {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		observability.Log.Warn("console viewer too slow, closing", zap.String("session_id", s.id))
		s.closeWithReason(websocket.CloseInternalServerErr, "backpressure overflow")
		return false
	}
}

func (s *session) close() {
	s.closeWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *session) closeWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}
	close(s.done)

	if s.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.conn.Close()
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				observability.Log.Debug("console write error", zap.String("session_id", s.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				observability.Log.Debug("console ping error", zap.String("session_id", s.id), zap.Error(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
