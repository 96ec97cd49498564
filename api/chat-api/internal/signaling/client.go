// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"sync"
	"time"

	"github.com/acasochat/acaso/pkg/signaling"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// client is one peer socket. readPump runs on the serving goroutine and
// writePump owns every write to conn.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	id     string
	userID string

	outbound chan []byte
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, id, userID string) *client {
	return &client{
		hub:      hub,
		conn:     conn,
		id:       id,
		userID:   userID,
		outbound: make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// send queues frame without blocking. A peer that stops reading loses frames.
func (c *client) send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbound <- frame:
	default:
		c.hub.logger.Warnw("signaling send buffer full, dropping frame", "peer", c.id)
	}
}

func (c *client) sendMessage(msg *signaling.Message) {
	frame, err := signaling.Encode(msg)
	if err != nil {
		c.hub.logger.Errorw("failed to encode frame", "peer", c.id, "error", err)
		return
	}
	c.send(frame)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *client) readDeadline() time.Time {
	return time.Now().Add(2 * c.hub.cfg.PingInterval)
}

func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(c.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(c.readDeadline())
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debugw("signaling socket closed", "peer", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(c.readDeadline())

		msg, err := signaling.Decode(frame)
		if err != nil {
			c.sendMessage(signaling.NewError(signaling.ErrorInvalidMessage, "", err.Error()))
			continue
		}
		switch {
		case msg.Type == signaling.MessageHeartbeat:
		case msg.Type.Relayed():
			if msg.Dst == "" {
				c.sendMessage(signaling.NewError(signaling.ErrorInvalidMessage, "", "missing dst"))
				continue
			}
			msg.Src = c.id
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			c.hub.route(ctx, c, msg)
			cancel()
		default:
			c.sendMessage(signaling.NewError(signaling.ErrorInvalidMessage, "", "unsupported type "+string(msg.Type)))
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			if err := c.hub.directory.Refresh(ctx, c.id); err != nil {
				c.hub.logger.Warnw("failed to refresh peer id", "peer", c.id, "error", err)
			}
			cancel()
		case <-c.done:
			c.drain()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes frames queued before close so a final error still reaches
// the peer.
func (c *client) drain() {
	for {
		select {
		case frame := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
