// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/acasochat/acaso/pkg/signaling"
)

// socket is one signaling connection. Writes are serialized; reads happen on
// the peer's read loop only.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func newSocket(conn *websocket.Conn) *socket {
	return &socket{conn: conn, done: make(chan struct{})}
}

// awaitOpen reads the first frame, which must be open or error.
func awaitOpen(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(openTimeout)
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	_, frame, err := conn.ReadMessage()
	if err != nil {
		return "", &Error{Type: ErrorNetwork, Err: err}
	}
	msg, err := signaling.Decode(frame)
	if err != nil {
		return "", &Error{Type: ErrorServerError, Err: err}
	}

	switch msg.Type {
	case signaling.MessageOpen:
		var open signaling.OpenPayload
		if err := msg.Decode(&open); err != nil {
			return "", &Error{Type: ErrorServerError, Err: err}
		}
		return open.ID, nil
	case signaling.MessageError:
		var payload signaling.ErrorPayload
		if err := msg.Decode(&payload); err != nil {
			return "", &Error{Type: ErrorServerError, Err: err}
		}
		return "", fromPayload(payload)
	}
	return "", &Error{Type: ErrorServerError, Err: fmt.Errorf("unexpected %s before open", msg.Type)}
}

func (s *socket) send(msg *signaling.Message) error {
	select {
	case <-s.done:
		return &Error{Type: ErrorNetwork, Err: ErrNotConnected}
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		return &Error{Type: ErrorNetwork, Err: err}
	}
	return nil
}

func (s *socket) heartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.send(&signaling.Message{Type: signaling.MessageHeartbeat}); err != nil {
				return
			}
		}
	}
}

func (s *socket) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.mu.Unlock()
		_ = s.conn.Close()
	})
}
