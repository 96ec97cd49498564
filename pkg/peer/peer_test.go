package peer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/signaling"
)

// relay is a minimal signaling server: it assigns ids, stamps src and
// forwards relayed frames by dst.
type relay struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	conns     map[string]*websocket.Conn
	next      int
	reject    string
	requested []string
	frames    []*signaling.Message
	heartbeat int
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	r := &relay{conns: make(map[string]*websocket.Conn)}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(func() {
		r.dropAll()
		r.srv.Close()
	})
	return r
}

func (r *relay) serve(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	id := req.URL.Query().Get("id")
	r.mu.Lock()
	r.requested = append(r.requested, id)
	reject := r.reject
	if id == "" {
		r.next++
		id = fmt.Sprintf("peer-%d", r.next)
	}
	r.mu.Unlock()

	if reject != "" {
		_ = conn.WriteJSON(signaling.NewError(reject, "", "rejected"))
		_ = conn.Close()
		return
	}

	open, _ := signaling.NewMessage(signaling.MessageOpen, "", id, signaling.OpenPayload{ID: id})
	r.mu.Lock()
	_ = conn.WriteJSON(open)
	r.conns[id] = conn
	r.mu.Unlock()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			if r.conns[id] == conn {
				delete(r.conns, id)
			}
			r.mu.Unlock()
			return
		}
		msg, err := signaling.Decode(frame)
		if err != nil {
			continue
		}

		r.mu.Lock()
		if msg.Type == signaling.MessageHeartbeat {
			r.heartbeat++
			r.mu.Unlock()
			continue
		}
		msg.Src = id
		r.frames = append(r.frames, msg)
		dst, ok := r.conns[msg.Dst]
		switch {
		case ok:
			_ = dst.WriteJSON(msg)
		case msg.Type == signaling.MessageOffer:
			_ = conn.WriteJSON(signaling.NewError(signaling.ErrorPeerUnavailable, msg.Dst, "peer not connected"))
		}
		r.mu.Unlock()
	}
}

func (r *relay) dropAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, conn := range r.conns {
		_ = conn.Close()
		delete(r.conns, id)
	}
}

func (r *relay) setReject(errType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = errType
}

func (r *relay) lastRequested() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requested[len(r.requested)-1]
}

func (r *relay) sawFrame(t signaling.MessageType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.Type == t {
			return true
		}
	}
	return false
}

func (r *relay) heartbeats() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeat
}

func newTestPeer(t *testing.T, r *relay) *Peer {
	t.Helper()
	p, err := New(Config{
		ServerURL:         r.srv.URL,
		Token:             "token",
		HeartbeatInterval: 50 * time.Millisecond,
	}, commons.NewNopLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	return p
}

func openPeer(t *testing.T, p *Peer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Open(ctx))
}

func TestOpen_AssignsID(t *testing.T) {
	r := newRelay(t)
	p := newTestPeer(t, r)

	opened := make(chan string, 1)
	p.OnOpen(func(id string) { opened <- id })
	openPeer(t, p)

	assert.Equal(t, "peer-1", p.ID())
	assert.Equal(t, "peer-1", <-opened)
	assert.False(t, p.Disconnected())
	assert.Eventually(t, func() bool { return r.heartbeats() > 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestOpen_UnavailableID(t *testing.T) {
	r := newRelay(t)
	r.setReject(signaling.ErrorUnavailableID)
	p := newTestPeer(t, r)

	err := p.Open(context.Background())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorUnavailableID))
	assert.Empty(t, p.ID())
}

func TestOpen_NetworkError(t *testing.T) {
	p, err := New(Config{ServerURL: "http://127.0.0.1:1"}, commons.NewNopLogger(), nil)
	require.NoError(t, err)

	err = p.Open(context.Background())
	assert.True(t, IsType(err, ErrorNetwork))
}

func TestDisconnectAndReconnect(t *testing.T) {
	r := newRelay(t)
	p := newTestPeer(t, r)

	lost := make(chan struct{}, 1)
	p.OnDisconnected(func() { lost <- struct{}{} })
	openPeer(t, p)

	r.dropAll()
	select {
	case <-lost:
	case <-time.After(3 * time.Second):
		t.Fatal("disconnect not reported")
	}
	assert.True(t, p.Disconnected())
	assert.False(t, p.Destroyed())

	require.NoError(t, p.Reconnect(context.Background()))
	assert.Equal(t, "peer-1", r.lastRequested())
	assert.Equal(t, "peer-1", p.ID())
	assert.False(t, p.Disconnected())
}

func TestCall_PeerUnavailable(t *testing.T) {
	r := newRelay(t)
	p := newTestPeer(t, r)
	openPeer(t, p)

	errs := make(chan error, 1)
	p.OnError(func(err error) { errs <- err })
	closed := make(chan struct{})

	call, err := p.Call("ghost", CallEvents{OnClose: func() { close(closed) }})
	require.NoError(t, err)
	assert.Equal(t, "ghost", call.PeerID())

	select {
	case err := <-errs:
		assert.True(t, IsType(err, ErrorPeerUnavailable))
		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "ghost", pe.Peer)
	case <-time.After(3 * time.Second):
		t.Fatal("peer-unavailable not reported")
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("call to unavailable peer not closed")
	}
	assert.True(t, call.Closed())
}

func TestCall_NotConnected(t *testing.T) {
	r := newRelay(t)
	p := newTestPeer(t, r)

	_, err := p.Call("anyone", CallEvents{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCall_NegotiatesAndLeaveClosesBothEnds(t *testing.T) {
	r := newRelay(t)
	caller := newTestPeer(t, r)
	callee := newTestPeer(t, r)
	openPeer(t, caller)
	openPeer(t, callee)

	calleeClosed := make(chan struct{})
	callee.OnCall(func(c *Call) {
		assert.Equal(t, caller.ID(), c.PeerID())
		assert.NoError(t, c.Answer(CallEvents{OnClose: func() { close(calleeClosed) }}))
		assert.ErrorIs(t, c.Answer(CallEvents{}), ErrAlreadyAnswered)
	})

	callerClosed := make(chan struct{})
	call, err := caller.Call(callee.ID(), CallEvents{OnClose: func() { close(callerClosed) }})
	require.NoError(t, err)
	assert.ErrorIs(t, call.Answer(CallEvents{}), ErrNotIncoming)

	require.Eventually(t, func() bool {
		return call.pc.RemoteDescription() != nil
	}, 5*time.Second, 20*time.Millisecond)

	call.Close()
	call.Close()
	<-callerClosed
	select {
	case <-calleeClosed:
	case <-time.After(3 * time.Second):
		t.Fatal("leave not delivered")
	}
	assert.True(t, r.sawFrame(signaling.MessageAnswer))
	assert.True(t, r.sawFrame(signaling.MessageLeave))
}

func TestIncomingCallWithoutHandlerIsRefused(t *testing.T) {
	r := newRelay(t)
	caller := newTestPeer(t, r)
	callee := newTestPeer(t, r)
	openPeer(t, caller)
	openPeer(t, callee)

	closed := make(chan struct{})
	_, err := caller.Call(callee.ID(), CallEvents{OnClose: func() { close(closed) }})
	require.NoError(t, err)

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("unanswered call not refused")
	}
}

func TestDestroy(t *testing.T) {
	r := newRelay(t)
	caller := newTestPeer(t, r)
	callee := newTestPeer(t, r)
	openPeer(t, caller)
	openPeer(t, callee)
	callee.OnCall(func(c *Call) { _ = c.Answer(CallEvents{}) })

	closed := make(chan struct{})
	_, err := caller.Call(callee.ID(), CallEvents{OnClose: func() { close(closed) }})
	require.NoError(t, err)

	disconnected := false
	caller.OnDisconnected(func() { disconnected = true })
	caller.Destroy()
	caller.Destroy()

	<-closed
	assert.True(t, caller.Destroyed())
	assert.False(t, disconnected)
	assert.ErrorIs(t, caller.Open(context.Background()), ErrDestroyed)
	assert.ErrorIs(t, caller.Reconnect(context.Background()), ErrDestroyed)
	_, err = caller.Call(callee.ID(), CallEvents{})
	assert.ErrorIs(t, err, ErrDestroyed)
}
