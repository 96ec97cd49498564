// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/acasochat/acaso/pkg/signaling"
)

var errConnectionFailed = errors.New("peer connection failed")

type CallEvents struct {
	OnStream func(*RemoteStream)
	OnClose  func()
	OnError  func(error)
}

// RemoteStream is one media track received from the remote peer.
type RemoteStream struct {
	PeerID string
	CallID string
	Kind   string
	Codec  string
}

type Call struct {
	peer     *Peer
	id       string
	remoteID string

	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	events      CallEvents
	offer       *signaling.DescriptionPayload
	pending     []webrtc.ICECandidateInit
	remoteReady bool
	closed      bool
}

func newCall(p *Peer, id, remoteID string) *Call {
	return &Call{peer: p, id: id, remoteID: remoteID}
}

func (c *Call) ID() string {
	return c.id
}

// PeerID is the id of the remote peer.
func (c *Call) PeerID() string {
	return c.remoteID
}

func (c *Call) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Answer accepts an incoming call and sends the answer back.
func (c *Call) Answer(events CallEvents) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrCallClosed
	case c.offer == nil:
		c.mu.Unlock()
		return ErrNotIncoming
	case c.pc != nil:
		c.mu.Unlock()
		return ErrAlreadyAnswered
	}
	offer := c.offer
	c.events = events
	c.mu.Unlock()

	pc, err := c.peer.newPeerConnection(c)
	if err != nil {
		c.shutdown(true)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = pc.Close()
		return ErrCallClosed
	}
	c.pc = pc
	c.mu.Unlock()

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		c.shutdown(true)
		return fmt.Errorf("failed to apply offer: %w", err)
	}
	c.flushCandidates()

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		c.shutdown(true)
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		c.shutdown(true)
		return fmt.Errorf("failed to set local description: %w", err)
	}

	msg, err := signaling.NewMessage(signaling.MessageAnswer, "", c.remoteID, signaling.DescriptionPayload{
		CallID: c.id,
		Type:   answer.Type.String(),
		SDP:    answer.SDP,
	})
	if err != nil {
		return err
	}
	if err := c.peer.send(msg); err != nil {
		c.shutdown(false)
		return err
	}
	return nil
}

// Close ends the call and tells the remote peer. It is idempotent.
func (c *Call) Close() {
	c.shutdown(true)
}

func (c *Call) offerTo() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	msg, err := signaling.NewMessage(signaling.MessageOffer, "", c.remoteID, signaling.DescriptionPayload{
		CallID: c.id,
		Type:   offer.Type.String(),
		SDP:    offer.SDP,
	})
	if err != nil {
		return err
	}
	return c.peer.send(msg)
}

func (c *Call) handleAnswer(desc signaling.DescriptionPayload) {
	c.mu.Lock()
	pc := c.pc
	closed := c.closed
	c.mu.Unlock()
	if closed || pc == nil {
		return
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  desc.SDP,
	}); err != nil {
		c.fail(fmt.Errorf("failed to apply answer: %w", err))
		return
	}
	c.flushCandidates()
}

// addRemoteCandidate queues candidates until the remote description is set.
func (c *Call) addRemoteCandidate(init webrtc.ICECandidateInit) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !c.remoteReady {
		c.pending = append(c.pending, init)
		c.mu.Unlock()
		return
	}
	pc := c.pc
	c.mu.Unlock()

	if err := pc.AddICECandidate(init); err != nil {
		c.peer.logger.Debugw("failed to add remote candidate", "call", c.id, "error", err)
	}
}

func (c *Call) flushCandidates() {
	c.mu.Lock()
	c.remoteReady = true
	pending := c.pending
	c.pending = nil
	pc := c.pc
	c.mu.Unlock()

	for _, init := range pending {
		if err := pc.AddICECandidate(init); err != nil {
			c.peer.logger.Debugw("failed to add queued candidate", "call", c.id, "error", err)
		}
	}
}

func (c *Call) sendCandidate(init webrtc.ICECandidateInit) {
	if c.Closed() {
		return
	}
	msg, err := signaling.NewMessage(signaling.MessageCandidate, "", c.remoteID, signaling.CandidatePayload{
		CallID:           c.id,
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	})
	if err != nil {
		return
	}
	if err := c.peer.send(msg); err != nil {
		c.peer.logger.Debugw("failed to send candidate", "call", c.id, "error", err)
	}
}

func (c *Call) handleState(state webrtc.PeerConnectionState) {
	c.peer.logger.Debugw("call connection state", "call", c.id, "peer", c.remoteID, "state", state.String())
	switch state {
	case webrtc.PeerConnectionStateFailed:
		c.fail(errConnectionFailed)
	case webrtc.PeerConnectionStateClosed:
		c.shutdown(false)
	}
}

func (c *Call) handleTrack(track *webrtc.TrackRemote) {
	c.mu.Lock()
	onStream := c.events.OnStream
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.peer.logger.Infow("remote track",
		"call", c.id,
		"peer", c.remoteID,
		"kind", track.Kind().String(),
		"codec", track.Codec().MimeType)

	go c.peer.consume(c, track)
	if onStream != nil {
		onStream(&RemoteStream{
			PeerID: c.remoteID,
			CallID: c.id,
			Kind:   track.Kind().String(),
			Codec:  track.Codec().MimeType,
		})
	}
}

func (c *Call) fail(err error) {
	c.mu.Lock()
	onError := c.events.OnError
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	if onError != nil {
		onError(err)
	}
	c.shutdown(true)
}

// shutdown closes the connection once, optionally sending leave, and fires
// OnClose.
func (c *Call) shutdown(notify bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pc := c.pc
	onClose := c.events.OnClose
	c.mu.Unlock()

	c.peer.removeCall(c.id)
	if notify {
		if msg, err := signaling.NewMessage(signaling.MessageLeave, "", c.remoteID, signaling.LeavePayload{CallID: c.id}); err == nil {
			_ = c.peer.send(msg)
		}
	}
	if pc != nil {
		go func() {
			if err := pc.Close(); err != nil {
				c.peer.logger.Debugw("error closing peer connection", "call", c.id, "error", err)
			}
		}()
	}
	c.peer.logger.Infow("call closed", "call", c.id, "peer", c.remoteID)
	if onClose != nil {
		onClose()
	}
}
