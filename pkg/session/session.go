// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package session runs the matchmaking loop of one signed-in user: register
// presence, search for a waiting partner, call, and start over when the
// partner leaves or is skipped.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acasochat/acaso/pkg/catalog"
	chat_client "github.com/acasochat/acaso/pkg/clients/chat"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/peer"
	"github.com/acasochat/acaso/pkg/utils"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusConnected Status = "connected"
	StatusSkipping  Status = "skipping"
	StatusError     Status = "error"
)

// user facing messages
const (
	msgMediaError      = "Erro ao acessar dispositivos de mídia."
	msgEngineError     = "Erro ao inicializar motor de vídeo."
	msgConnectionError = "Erro de conexão: %s"
	msgNobodyOnline    = "Ninguém online no momento. Tente novamente."
	msgRegistryMissing = "Erro crítico: Tabela 'rooms' não encontrada."
	msgServerFailure   = "Falha crítica de conexão com o servidor."
)

var (
	ErrNoPartner     = errors.New("no partner to report")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidReason = errors.New("invalid report reason")
)

type ChatState struct {
	Status            Status
	PartnerLocation   string
	IsAudioEnabled    bool
	IsVideoEnabled    bool
	ErrorMessage      string
	ActiveFilter      catalog.FilterType
	ActiveAudioFilter catalog.AudioFilterType
	Grid4x            bool
	Partners          []string
}

type Options struct {
	// SearchAttempts is how many empty searches are retried before giving
	// up.
	SearchAttempts int
	RetryInterval  time.Duration
	// RecoverDelay is the pause before searching again after the last
	// partner left.
	RecoverDelay time.Duration
	SkipDelay    time.Duration
}

func DefaultOptions() Options {
	return Options{
		SearchAttempts: 30,
		RetryInterval:  2 * time.Second,
		RecoverDelay:   time.Second,
		SkipDelay:      400 * time.Millisecond,
	}
}

type MediaOpener func(ctx context.Context) (Media, error)
type EngineFactory func() (Engine, error)

type Dependencies struct {
	Matchmaker Matchmaker
	Reporter   Reporter
	Auth       Auth
	OpenMedia  MediaOpener
	NewEngine  EngineFactory
}

type trackedCall struct {
	call      Call
	location  string
	outgoing  bool
	streaming bool
	closed    bool
}

type Session struct {
	logger commons.Logger
	opts   Options
	deps   Dependencies

	mu          sync.Mutex
	state       ChatState
	ctx         context.Context
	cancel      context.CancelFunc
	engine      Engine
	media       Media
	calls       map[string]*trackedCall
	generation  uint64
	searching   bool
	searchGen   uint64
	subscribers []func(ChatState)
}

func New(logger commons.Logger, deps Dependencies, opts Options) *Session {
	defaults := DefaultOptions()
	if opts.SearchAttempts <= 0 {
		opts.SearchAttempts = defaults.SearchAttempts
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaults.RetryInterval
	}
	if opts.RecoverDelay <= 0 {
		opts.RecoverDelay = defaults.RecoverDelay
	}
	if opts.SkipDelay <= 0 {
		opts.SkipDelay = defaults.SkipDelay
	}
	return &Session{
		logger: logger,
		opts:   opts,
		deps:   deps,
		calls:  make(map[string]*trackedCall),
		state: ChatState{
			Status:            StatusIdle,
			IsAudioEnabled:    true,
			IsVideoEnabled:    true,
			ActiveFilter:      catalog.FilterNormal,
			ActiveAudioFilter: catalog.AudioFilterNormal,
		},
	}
}

// OnChange subscribes to state changes. fn runs on the goroutine that made
// the change.
func (s *Session) OnChange(fn func(ChatState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Session) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start opens the local media and the engine. The search begins once the
// engine reports its id.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.engine != nil {
		s.mu.Unlock()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	sctx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = sctx, cancel
	s.generation++
	s.state.Status = StatusSearching
	s.state.ErrorMessage = ""
	s.commitLocked()

	media, err := s.deps.OpenMedia(sctx)
	if err != nil {
		s.logger.Errorw("unable to open local media", "error", err)
		s.fail(msgMediaError)
		return fmt.Errorf("failed to open local media: %w", err)
	}

	engine, err := s.deps.NewEngine()
	if err != nil {
		media.Stop()
		s.logger.Errorw("unable to create peer engine", "error", err)
		s.fail(msgEngineError)
		return fmt.Errorf("failed to create peer engine: %w", err)
	}
	engine.OnOpen(s.handleOpen)
	engine.OnCall(s.handleIncoming)
	engine.OnError(s.handlePeerError)
	engine.OnDisconnected(s.handleDisconnected)

	s.mu.Lock()
	s.media = media
	s.engine = engine
	s.state.IsAudioEnabled = media.Enabled(peer.KindAudio)
	s.state.IsVideoEnabled = media.Enabled(peer.KindVideo)
	s.commitLocked()

	if err := engine.Open(sctx); err != nil {
		s.handlePeerError(err)
		return fmt.Errorf("failed to open peer engine: %w", err)
	}
	return nil
}

func (s *Session) handleOpen(id string) {
	s.logger.Infow("peer engine open", "peer", id)

	s.mu.Lock()
	inCall := len(s.calls) > 0 && s.state.Status == StatusConnected
	ctx := s.ctx
	s.mu.Unlock()

	if !inCall {
		s.schedule(0, s.findPartner)
		return
	}
	// reconnected during a call: only the presence row needs restoring
	if err := s.deps.Matchmaker.RegisterPresence(ctx, id); err != nil {
		s.logger.Warnw("unable to restore presence", "error", err)
		return
	}
	if err := s.deps.Matchmaker.UpdateStatus(ctx, chat_client.PresenceChatting); err != nil {
		s.logger.Warnw("unable to restore presence status", "error", err)
	}
}

// findPartner drops every call, registers presence and searches until the
// layout is full, the attempts run out or a newer search supersedes it.
func (s *Session) findPartner() {
	s.mu.Lock()
	if s.engine == nil || s.media == nil {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	engine, ctx := s.engine, s.ctx
	s.searching, s.searchGen = true, gen
	stale := s.takeCallsLocked()
	s.state.Status = StatusSearching
	s.commitLocked()
	closeAll(stale)
	defer s.searchDone(gen)

	if err := s.deps.Matchmaker.RegisterPresence(ctx, engine.ID()); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("unable to register presence", "peer", engine.ID(), "error", err)
		s.failIfCurrent(gen, fmt.Sprintf(msgConnectionError, err.Error()))
		return
	}

	attempts := 0
	for {
		if ctx.Err() != nil || !s.current(gen) || s.settled(gen) {
			return
		}
		if attempts > s.opts.SearchAttempts {
			s.logger.Infow("nobody online", "attempts", attempts)
			s.failIfCurrent(gen, msgNobodyOnline)
			return
		}

		match, err := s.deps.Matchmaker.FindRandomPeer(ctx, engine.ID())
		switch {
		case errors.Is(err, chat_client.ErrRegistryUnavailable):
			s.logger.Errorw("presence registry unavailable", "error", err)
			s.failIfCurrent(gen, msgRegistryMissing)
			return
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.logger.Warnw("partner search failed", "attempt", attempts, "error", err)
		case match != nil && s.dial(ctx, gen, engine, match):
			continue
		}

		attempts++
		if !sleep(ctx, s.opts.RetryInterval) {
			return
		}
	}
}

// dial calls a match and tracks the call. It returns false when the match
// was already a partner or the call could not be placed.
func (s *Session) dial(ctx context.Context, gen uint64, engine Engine, match *chat_client.Match) bool {
	s.mu.Lock()
	if _, exists := s.calls[match.PeerID]; exists || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	t := &trackedCall{location: match.Country, outgoing: true}
	s.calls[match.PeerID] = t
	s.mu.Unlock()

	call, err := engine.Call(match.PeerID, s.callEvents(match.PeerID, t))
	if err != nil {
		s.logger.Warnw("unable to call partner", "partner", match.PeerID, "error", err)
		s.mu.Lock()
		if s.calls[match.PeerID] == t {
			delete(s.calls, match.PeerID)
		}
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	t.call = call
	dead := t.closed || s.calls[match.PeerID] != t
	s.mu.Unlock()
	if dead {
		call.Close()
		return false
	}

	s.logger.Infow("calling partner", "partner", match.PeerID, "country", match.Country)
	if err := s.deps.Matchmaker.UpdateStatus(ctx, chat_client.PresenceChatting); err != nil {
		s.logger.Warnw("unable to update presence status", "error", err)
	}
	return true
}

func (s *Session) handleIncoming(call Call) {
	peerID := call.PeerID()

	s.mu.Lock()
	if s.engine == nil {
		s.mu.Unlock()
		call.Close()
		return
	}
	existing, exists := s.calls[peerID]
	var replaced *trackedCall
	switch {
	case exists && s.yieldLocked(peerID, existing):
		// both sides dialed each other: the call placed by the lower id wins
		delete(s.calls, peerID)
		existing.closed = true
		replaced = existing
	case exists || len(s.calls) >= s.capacityLocked():
		s.mu.Unlock()
		s.logger.Infow("rejecting incoming call", "from", peerID)
		call.Close()
		return
	}
	t := &trackedCall{call: call}
	if replaced != nil {
		t.location = replaced.location
	}
	s.calls[peerID] = t
	ctx := s.ctx
	s.mu.Unlock()

	if replaced != nil {
		s.logger.Infow("dropping crossed outgoing call", "partner", peerID)
		closeAll([]*trackedCall{replaced})
	}

	if err := call.Answer(s.callEvents(peerID, t)); err != nil {
		s.logger.Warnw("unable to answer call", "from", peerID, "error", err)
		s.removeCall(peerID, t)
		return
	}
	s.logger.Infow("answered call", "from", peerID)
	if err := s.deps.Matchmaker.UpdateStatus(ctx, chat_client.PresenceChatting); err != nil {
		s.logger.Warnw("unable to update presence status", "error", err)
	}
}

// yieldLocked reports whether our pending outgoing call to peerID gives way
// to the incoming one.
func (s *Session) yieldLocked(peerID string, existing *trackedCall) bool {
	return existing.outgoing && !existing.streaming && peerID < s.engine.ID()
}

func (s *Session) callEvents(peerID string, t *trackedCall) peer.CallEvents {
	return peer.CallEvents{
		OnStream: func(*peer.RemoteStream) {
			s.addPartner(peerID, t)
		},
		OnClose: func() {
			s.removeCall(peerID, t)
		},
		OnError: func(err error) {
			s.logger.Warnw("call failed", "partner", peerID, "error", err)
			s.removeCall(peerID, t)
		},
	}
}

func (s *Session) addPartner(peerID string, t *trackedCall) {
	s.mu.Lock()
	if s.calls[peerID] != t {
		s.mu.Unlock()
		return
	}
	t.streaming = true
	if !contains(s.state.Partners, peerID) {
		s.state.Partners = append(s.state.Partners, peerID)
	}
	s.state.Status = StatusConnected
	s.state.PartnerLocation = t.location
	s.commitLocked()
}

func (s *Session) removeCall(peerID string, t *trackedCall) {
	s.mu.Lock()
	t.closed = true
	if s.calls[peerID] != t {
		s.mu.Unlock()
		return
	}
	delete(s.calls, peerID)
	s.state.Partners = without(s.state.Partners, peerID)
	// a call may also die before its stream arrives, after the search
	// loop already stopped on a full layout
	idle := s.state.Status == StatusSearching && !s.searchRunningLocked()
	restart := len(s.calls) == 0 && (s.state.Status == StatusConnected || idle)
	if restart {
		s.state.Status = StatusSearching
	}
	s.commitLocked()

	if restart {
		s.logger.Infow("partner left, searching again", "partner", peerID)
		s.schedule(s.opts.RecoverDelay, s.findPartner)
	}
}

// Skip drops the current partners and searches again. It is ignored while a
// skip or a search is already running.
func (s *Session) Skip() {
	s.skip(false)
}

func (s *Session) skip(force bool) {
	s.mu.Lock()
	if s.engine == nil {
		s.mu.Unlock()
		return
	}
	if !force && (s.state.Status == StatusSkipping || s.state.Status == StatusSearching) {
		s.mu.Unlock()
		return
	}
	s.generation++
	stale := s.takeCallsLocked()
	s.state.Status = StatusSkipping
	s.commitLocked()
	closeAll(stale)

	s.schedule(s.opts.SkipDelay, s.findPartner)
}

func (s *Session) handlePeerError(err error) {
	switch {
	case peer.IsType(err, peer.ErrorPeerUnavailable), peer.IsType(err, peer.ErrorUnavailableID):
		s.logger.Debugw("partner unavailable, moving on", "error", err)
		s.skip(true)
	case peer.IsType(err, peer.ErrorNetwork), peer.IsType(err, peer.ErrorServerError):
		s.logger.Errorw("signaling failure", "error", err)
		s.fail(msgServerFailure)
	default:
		s.logger.Warnw("peer error", "error", err)
	}
}

func (s *Session) handleDisconnected() {
	s.mu.Lock()
	engine, ctx := s.engine, s.ctx
	s.mu.Unlock()
	if engine == nil || engine.Destroyed() {
		return
	}

	utils.Go(ctx, s.logger, func() {
		s.logger.Infow("signaling lost, reconnecting", "peer", engine.ID())
		err := engine.Reconnect(ctx)
		if peer.IsType(err, peer.ErrorUnavailableID) {
			s.logger.Warnw("previous peer id taken, opening with a new one", "peer", engine.ID())
			err = engine.Open(ctx)
		}
		if err != nil && ctx.Err() == nil {
			s.handlePeerError(err)
		}
	})
}

// ToggleGrid switches between one partner and the four-way grid, then skips.
func (s *Session) ToggleGrid() {
	s.mu.Lock()
	s.state.Grid4x = !s.state.Grid4x
	s.commitLocked()
	s.Skip()
}

func (s *Session) ToggleTrack(kind peer.MediaKind) {
	s.mu.Lock()
	if s.media == nil {
		s.mu.Unlock()
		return
	}
	enabled := !s.media.Enabled(kind)
	s.media.SetEnabled(kind, enabled)
	switch kind {
	case peer.KindAudio:
		s.state.IsAudioEnabled = enabled
	case peer.KindVideo:
		s.state.IsVideoEnabled = enabled
	}
	s.commitLocked()
}

func (s *Session) SetFilter(id string) error {
	filter, ok := catalog.ParseFilter(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, id)
	}
	s.mu.Lock()
	s.state.ActiveFilter = filter
	s.commitLocked()
	return nil
}

func (s *Session) SetAudioFilter(id string) error {
	filter, ok := catalog.ParseAudioFilter(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, id)
	}
	s.mu.Lock()
	s.state.ActiveAudioFilter = filter
	s.commitLocked()
	return nil
}

// Report files a report against peerID, or the first partner when peerID is
// empty, then skips.
func (s *Session) Report(ctx context.Context, reason, peerID string) error {
	r, ok := catalog.ParseReportReason(reason)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidReason, reason)
	}

	s.mu.Lock()
	if peerID == "" && len(s.state.Partners) > 0 {
		peerID = s.state.Partners[0]
	}
	s.mu.Unlock()
	if peerID == "" {
		return ErrNoPartner
	}

	if err := s.deps.Reporter.Report(ctx, peerID, r); err != nil {
		return fmt.Errorf("failed to report partner: %w", err)
	}
	s.logger.Infow("partner reported", "partner", peerID, "reason", r)
	s.Skip()
	return nil
}

// Logout ends the server session and shuts everything down.
func (s *Session) Logout(ctx context.Context) error {
	err := s.deps.Auth.Logout(ctx)
	if err != nil {
		s.logger.Warnw("logout failed", "error", err)
	}
	s.Shutdown(ctx)

	s.mu.Lock()
	s.state.Status = StatusIdle
	s.state.ErrorMessage = ""
	s.commitLocked()
	return err
}

// Shutdown removes presence, closes calls, stops media and destroys the
// engine. Start may be called again afterwards.
func (s *Session) Shutdown(ctx context.Context) {
	s.mu.Lock()
	engine, media, cancel := s.engine, s.media, s.cancel
	s.engine, s.media, s.cancel = nil, nil, nil
	s.generation++
	stale := s.takeCallsLocked()
	s.commitLocked()

	if engine != nil {
		if err := s.deps.Matchmaker.RemovePresence(ctx); err != nil {
			s.logger.Warnw("unable to remove presence", "error", err)
		}
	}
	closeAll(stale)
	if media != nil {
		media.Stop()
	}
	if engine != nil {
		engine.Destroy()
	}
	if cancel != nil {
		cancel()
	}
}

func (s *Session) fail(message string) {
	s.mu.Lock()
	s.failLocked(message)
}

func (s *Session) failIfCurrent(gen uint64, message string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.failLocked(message)
}

// failLocked unlocks s.mu.
func (s *Session) failLocked(message string) {
	s.generation++
	s.state.Status = StatusError
	s.state.ErrorMessage = message
	s.commitLocked()
}

func (s *Session) searchDone(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchGen == gen {
		s.searching = false
	}
}

func (s *Session) searchRunningLocked() bool {
	return s.searching && s.searchGen == s.generation
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// settled reports a full layout and ends the search under the same lock, so
// a call dropping right after restarts it.
func (s *Session) settled(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) < s.capacityLocked() {
		return false
	}
	if s.searchGen == gen {
		s.searching = false
	}
	return true
}

func (s *Session) capacityLocked() int {
	if s.state.Grid4x {
		return 3
	}
	return 1
}

// schedule runs fn after delay unless the session moved on in between.
func (s *Session) schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	ctx, gen := s.ctx, s.generation
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	utils.Go(ctx, s.logger, func() {
		if delay > 0 && !sleep(ctx, delay) {
			return
		}
		if s.current(gen) {
			fn()
		}
	})
}

// takeCallsLocked empties the call table and the partner list.
func (s *Session) takeCallsLocked() []*trackedCall {
	stale := make([]*trackedCall, 0, len(s.calls))
	for _, t := range s.calls {
		stale = append(stale, t)
	}
	s.calls = make(map[string]*trackedCall)
	s.state.Partners = nil
	s.state.PartnerLocation = ""
	return stale
}

func (s *Session) snapshotLocked() ChatState {
	st := s.state
	st.Partners = append([]string(nil), s.state.Partners...)
	return st
}

// commitLocked publishes the current state and unlocks s.mu.
func (s *Session) commitLocked() {
	st := s.snapshotLocked()
	subs := make([]func(ChatState), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func closeAll(calls []*trackedCall) {
	for _, t := range calls {
		if t.call != nil {
			t.call.Close()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := list[:0:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
