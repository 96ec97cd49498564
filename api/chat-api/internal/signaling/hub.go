// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/signaling"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const cleanupTimeout = 5 * time.Second

// Hub brokers signaling frames between connected peers. Peers held by other
// instances are reached through the Directory.
type Hub struct {
	cfg       config.SignalingConfig
	logger    commons.Logger
	presence  internal_services.PresenceService
	directory Directory

	mu     sync.RWMutex
	peers  map[string]*client
	closed bool
}

func NewHub(cfg config.SignalingConfig, logger commons.Logger, presence internal_services.PresenceService, directory Directory) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	return &Hub{
		cfg:       cfg,
		logger:    logger,
		presence:  presence,
		directory: directory,
		peers:     make(map[string]*client),
	}
}

// NewUpgrader accepts origins listed in the signaling config, "*" allows any.
func NewUpgrader(cfg config.SignalingConfig) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if _, ok := allowed["*"]; ok || len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// Run consumes frames routed to this instance until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	frames, err := h.directory.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			msg, err := signaling.Decode(frame)
			if err != nil {
				h.logger.Warnw("dropping routed frame", "error", err)
				continue
			}
			if !h.deliverLocal(msg.Dst, frame) {
				h.logger.Debugw("routed frame for a peer that left", "type", msg.Type, "dst", msg.Dst)
			}
		}
	}
}

// Serve owns conn until the socket closes. requestedID is honoured when the
// caller reconnects with an id it registered before.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, auth types.SimplePrinciple, requestedID string) {
	peerID, reason := h.admit(ctx, auth, requestedID)
	if reason != "" {
		h.logger.Infow("peer id refused", "user", auth.GetUserId(), "peer", requestedID, "reason", reason)
		rejectAndClose(conn, signaling.NewError(reason, requestedID, ""))
		return
	}

	c := newClient(h, conn, peerID, auth.GetUserId())
	if !h.register(c) {
		rejectAndClose(conn, signaling.NewError(signaling.ErrorUnavailableID, peerID, ""))
		h.release(peerID)
		return
	}
	h.logger.Infow("peer connected", "peer", peerID, "user", c.userID)

	open, _ := signaling.NewMessage(signaling.MessageOpen, "", "", signaling.OpenPayload{ID: peerID})
	c.sendMessage(open)

	go c.writePump()
	c.readPump()

	h.unregister(c)
}

func (h *Hub) admit(ctx context.Context, auth types.SimplePrinciple, requestedID string) (string, string) {
	peerID := requestedID
	if peerID == "" {
		peerID = uuid.NewString()
	} else {
		owner, err := h.presence.OwnerOf(ctx, peerID)
		if err != nil {
			h.logger.Errorw("failed to resolve requested peer id", "peer", peerID, "error", err)
			return "", signaling.ErrorServer
		}
		if owner != "" && owner != auth.GetUserId() {
			return "", signaling.ErrorUnavailableID
		}
	}

	if h.Connected(peerID) {
		return "", signaling.ErrorUnavailableID
	}
	claimed, err := h.directory.Claim(ctx, peerID)
	if err != nil {
		h.logger.Errorw("failed to claim peer id", "peer", peerID, "error", err)
		return "", signaling.ErrorServer
	}
	if !claimed {
		return "", signaling.ErrorUnavailableID
	}
	return peerID, ""
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if _, exists := h.peers[c.id]; exists {
		return false
	}
	h.peers[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if current, ok := h.peers[c.id]; ok && current == c {
		delete(h.peers, c.id)
	}
	h.mu.Unlock()
	c.close()

	h.release(c.id)

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := h.presence.RemoveByPeer(ctx, c.id); err != nil {
		h.logger.Warnw("failed to remove presence of disconnected peer", "peer", c.id, "error", err)
	}
	h.logger.Infow("peer disconnected", "peer", c.id, "user", c.userID)
}

func (h *Hub) release(peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := h.directory.Release(ctx, peerID); err != nil {
		h.logger.Warnw("failed to release peer id", "peer", peerID, "error", err)
	}
}

// Connected reports whether peerID holds a socket on this instance.
func (h *Hub) Connected(peerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.peers[peerID]
	return ok
}

func (h *Hub) deliverLocal(peerID string, frame []byte) bool {
	h.mu.RLock()
	c, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.send(frame)
	return true
}

// route forwards msg from its sender to msg.Dst wherever that peer lives.
func (h *Hub) route(ctx context.Context, from *client, msg *signaling.Message) {
	frame, err := signaling.Encode(msg)
	if err != nil {
		h.logger.Errorw("failed to encode relayed frame", "peer", from.id, "error", err)
		return
	}
	if h.deliverLocal(msg.Dst, frame) {
		return
	}

	instance, err := h.directory.Lookup(ctx, msg.Dst)
	if err != nil {
		h.logger.Warnw("peer lookup failed", "dst", msg.Dst, "error", err)
	}
	if instance != "" && instance != h.directory.InstanceID() {
		err := h.directory.Publish(ctx, instance, frame)
		if err == nil {
			return
		}
		h.logger.Warnw("failed to route frame", "dst", msg.Dst, "instance", instance, "error", err)
	}

	if msg.Type == signaling.MessageOffer {
		from.sendMessage(signaling.NewError(signaling.ErrorPeerUnavailable, msg.Dst, ""))
		return
	}
	h.logger.Debugw("dropping frame for unknown peer", "type", msg.Type, "src", msg.Src, "dst", msg.Dst)
}

// Close disconnects every local peer. New sockets are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.peers))
	for _, c := range h.peers {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func rejectAndClose(conn *websocket.Conn, msg *signaling.Message) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(msg)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rejected"))
	_ = conn.Close()
}
