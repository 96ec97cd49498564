// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package session

import (
	"context"

	"github.com/acasochat/acaso/pkg/catalog"
	chat_client "github.com/acasochat/acaso/pkg/clients/chat"
	"github.com/acasochat/acaso/pkg/peer"
)

// Call is one media call with a partner.
type Call interface {
	PeerID() string
	Answer(events peer.CallEvents) error
	Close()
}

// Engine is the peer-connection engine a session drives.
type Engine interface {
	ID() string
	Open(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Call(remoteID string, events peer.CallEvents) (Call, error)
	OnOpen(func(id string))
	OnCall(func(Call))
	OnError(func(error))
	OnDisconnected(func())
	Destroy()
	Destroyed() bool
}

// Media is the local camera and microphone.
type Media interface {
	SetEnabled(kind peer.MediaKind, enabled bool)
	Enabled(kind peer.MediaKind) bool
	Stop()
}

type Matchmaker interface {
	RegisterPresence(ctx context.Context, peerID string) error
	UpdateStatus(ctx context.Context, status string) error
	FindRandomPeer(ctx context.Context, peerID string) (*chat_client.Match, error)
	RemovePresence(ctx context.Context) error
}

type Reporter interface {
	Report(ctx context.Context, peerID string, reason catalog.ReportReason) error
}

type Auth interface {
	Logout(ctx context.Context) error
}

type peerEngine struct {
	p *peer.Peer
}

// NewPeerEngine adapts a pion backed peer to Engine.
func NewPeerEngine(p *peer.Peer) Engine {
	return &peerEngine{p: p}
}

func (e *peerEngine) ID() string                          { return e.p.ID() }
func (e *peerEngine) Open(ctx context.Context) error      { return e.p.Open(ctx) }
func (e *peerEngine) Reconnect(ctx context.Context) error { return e.p.Reconnect(ctx) }
func (e *peerEngine) OnOpen(fn func(id string))           { e.p.OnOpen(fn) }
func (e *peerEngine) OnError(fn func(error))              { e.p.OnError(fn) }
func (e *peerEngine) OnDisconnected(fn func())            { e.p.OnDisconnected(fn) }
func (e *peerEngine) Destroy()                            { e.p.Destroy() }
func (e *peerEngine) Destroyed() bool                     { return e.p.Destroyed() }

func (e *peerEngine) Call(remoteID string, events peer.CallEvents) (Call, error) {
	c, err := e.p.Call(remoteID, events)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *peerEngine) OnCall(fn func(Call)) {
	e.p.OnCall(func(c *peer.Call) { fn(c) })
}
