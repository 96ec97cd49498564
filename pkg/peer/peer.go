// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package peer is the client side of a chat session: one signaling socket to
// chat-api and any number of WebRTC calls negotiated over it.
package peer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/signaling"
)

type Peer struct {
	cfg    Config
	logger commons.Logger
	api    *webrtc.API
	media  *LocalMedia
	dialer *websocket.Dialer

	mu           sync.Mutex
	id           string
	sock         *socket
	calls        map[string]*Call
	destroyed    bool
	disconnected bool

	onOpen         func(id string)
	onCall         func(*Call)
	onError        func(error)
	onDisconnected func()
}

// New builds a peer. media may be nil, in which case calls only receive.
func New(cfg Config, logger commons.Logger, media *LocalMedia) (*Peer, error) {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}

	settings := webrtc.SettingEngine{LoggerFactory: commons.NewPionLoggerFactory(logger)}

	return &Peer{
		cfg:    cfg,
		logger: logger,
		media:  media,
		dialer: websocket.DefaultDialer,
		calls:  make(map[string]*Call),
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(mediaEngine),
			webrtc.WithInterceptorRegistry(registry),
			webrtc.WithSettingEngine(settings),
		),
	}, nil
}

func (p *Peer) OnOpen(fn func(id string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onOpen = fn
}

// OnCall receives incoming calls. Calls arriving without a handler are closed.
func (p *Peer) OnCall(fn func(*Call)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCall = fn
}

func (p *Peer) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

func (p *Peer) OnDisconnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDisconnected = fn
}

// ID is the server-assigned peer id, empty before the first open.
func (p *Peer) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

func (p *Peer) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *Peer) Disconnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnected
}

// Open connects to the signaling server and waits for the assigned id.
func (p *Peer) Open(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.sock != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.connect(ctx, "")
}

// Reconnect reopens the signaling socket asking for the previous id.
func (p *Peer) Reconnect(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.sock != nil {
		p.mu.Unlock()
		return nil
	}
	id := p.id
	p.mu.Unlock()
	return p.connect(ctx, id)
}

func (p *Peer) connect(ctx context.Context, requestedID string) error {
	target, err := p.cfg.signalURL(requestedID)
	if err != nil {
		return err
	}

	conn, _, err := p.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return &Error{Type: ErrorNetwork, Err: err}
	}

	id, err := awaitOpen(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	sock := newSocket(conn)
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		sock.close()
		return ErrDestroyed
	}
	p.sock = sock
	p.id = id
	p.disconnected = false
	onOpen := p.onOpen
	p.mu.Unlock()

	p.logger.Infow("signaling connection open", "peer", id, "requested", requestedID)
	go p.readLoop(sock)
	go sock.heartbeat(p.cfg.HeartbeatInterval)

	if onOpen != nil {
		onOpen(id)
	}
	return nil
}

func (p *Peer) readLoop(sock *socket) {
	for {
		_, frame, err := sock.conn.ReadMessage()
		if err != nil {
			p.socketLost(sock, err)
			return
		}
		msg, err := signaling.Decode(frame)
		if err != nil {
			p.logger.Warnw("dropping malformed signaling frame", "error", err)
			continue
		}
		p.handle(msg)
	}
}

func (p *Peer) socketLost(sock *socket, cause error) {
	sock.close()

	p.mu.Lock()
	if p.sock != sock || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.sock = nil
	p.disconnected = true
	fn := p.onDisconnected
	p.mu.Unlock()

	p.logger.Warnw("signaling connection lost", "peer", p.ID(), "error", cause)
	if fn != nil {
		fn()
	}
}

func (p *Peer) handle(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageOffer:
		var desc signaling.DescriptionPayload
		if err := msg.Decode(&desc); err != nil {
			p.logger.Warnw("invalid offer", "from", msg.Src, "error", err)
			return
		}
		p.incoming(msg.Src, desc)

	case signaling.MessageAnswer:
		var desc signaling.DescriptionPayload
		if err := msg.Decode(&desc); err != nil {
			p.logger.Warnw("invalid answer", "from", msg.Src, "error", err)
			return
		}
		if c := p.call(desc.CallID); c != nil {
			c.handleAnswer(desc)
		}

	case signaling.MessageCandidate:
		var cand signaling.CandidatePayload
		if err := msg.Decode(&cand); err != nil {
			p.logger.Warnw("invalid candidate", "from", msg.Src, "error", err)
			return
		}
		if c := p.call(cand.CallID); c != nil {
			c.addRemoteCandidate(webrtc.ICECandidateInit{
				Candidate:        cand.Candidate,
				SDPMid:           cand.SDPMid,
				SDPMLineIndex:    cand.SDPMLineIndex,
				UsernameFragment: cand.UsernameFragment,
			})
		}

	case signaling.MessageLeave:
		var leave signaling.LeavePayload
		if err := msg.Decode(&leave); err != nil {
			return
		}
		if c := p.call(leave.CallID); c != nil {
			c.shutdown(false)
		}

	case signaling.MessageError:
		var payload signaling.ErrorPayload
		if err := msg.Decode(&payload); err != nil {
			p.logger.Warnw("invalid error frame", "error", err)
			return
		}
		perr := fromPayload(payload)
		if perr.Type == ErrorPeerUnavailable {
			for _, c := range p.callsTo(payload.Peer) {
				c.shutdown(false)
			}
		}
		p.emitError(perr)

	case signaling.MessageHeartbeat, signaling.MessageOpen:
	default:
		p.logger.Debugw("ignoring signaling frame", "type", msg.Type)
	}
}

func (p *Peer) incoming(from string, desc signaling.DescriptionPayload) {
	c := newCall(p, desc.CallID, from)
	c.offer = &desc

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.calls[c.id] = c
	onCall := p.onCall
	p.mu.Unlock()

	p.logger.Infow("incoming call", "from", from, "call", c.id)
	if onCall == nil {
		c.Close()
		return
	}
	onCall(c)
}

// Call places an outgoing call to remoteID.
func (p *Peer) Call(remoteID string, events CallEvents) (*Call, error) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, ErrDestroyed
	}
	if p.sock == nil {
		p.mu.Unlock()
		return nil, &Error{Type: ErrorNetwork, Err: ErrNotConnected}
	}
	p.mu.Unlock()

	c := newCall(p, uuid.NewString(), remoteID)
	c.events = events

	pc, err := p.newPeerConnection(c)
	if err != nil {
		return nil, err
	}
	c.pc = pc

	p.mu.Lock()
	p.calls[c.id] = c
	p.mu.Unlock()

	if err := c.offerTo(); err != nil {
		c.shutdown(false)
		return nil, err
	}
	p.logger.Infow("calling peer", "to", remoteID, "call", c.id)
	return c, nil
}

// Destroy closes every call and the signaling socket. It is idempotent.
func (p *Peer) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	calls := make([]*Call, 0, len(p.calls))
	for _, c := range p.calls {
		calls = append(calls, c)
	}
	p.mu.Unlock()

	for _, c := range calls {
		c.shutdown(true)
	}

	p.mu.Lock()
	sock := p.sock
	p.sock = nil
	p.mu.Unlock()
	if sock != nil {
		sock.close()
	}
	p.logger.Infow("peer destroyed", "peer", p.ID())
}

func (p *Peer) newPeerConnection(c *Call) (*webrtc.PeerConnection, error) {
	pc, err := p.api.NewPeerConnection(p.cfg.rtcConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	if p.media != nil {
		for _, track := range p.media.Tracks() {
			sender, err := pc.AddTrack(track)
			if err != nil {
				_ = pc.Close()
				return nil, fmt.Errorf("failed to add %s track: %w", track.Kind(), err)
			}
			go drainRTCP(sender)
		}
	} else {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				_ = pc.Close()
				return nil, fmt.Errorf("failed to add %s transceiver: %w", kind, err)
			}
		}
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		c.sendCandidate(candidate.ToJSON())
	})
	pc.OnConnectionStateChange(c.handleState)
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.handleTrack(track)
	})
	return pc, nil
}

func (p *Peer) send(msg *signaling.Message) error {
	p.mu.Lock()
	sock := p.sock
	p.mu.Unlock()
	if sock == nil {
		return &Error{Type: ErrorNetwork, Err: ErrNotConnected}
	}
	return sock.send(msg)
}

func (p *Peer) call(id string) *Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

func (p *Peer) callsTo(remoteID string) []*Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Call
	for _, c := range p.calls {
		if c.remoteID == remoteID {
			out = append(out, c)
		}
	}
	return out
}

func (p *Peer) removeCall(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.calls, id)
}

func (p *Peer) emitError(err error) {
	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	p.logger.Warnw("peer error", "peer", p.ID(), "error", err)
	if fn != nil {
		fn(err)
	}
}

// drainRTCP keeps interceptors like NACK running for a sender.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, rtpBufferSize)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
