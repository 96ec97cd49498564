package internal_signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/signaling"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	instance string
	frame    []byte
}

type memoryDirectory struct {
	mu        sync.Mutex
	instance  string
	owners    map[string]string
	published []published
	frames    chan []byte
}

func newMemoryDirectory(instance string) *memoryDirectory {
	return &memoryDirectory{instance: instance, owners: map[string]string{}, frames: make(chan []byte, 8)}
}

func (d *memoryDirectory) InstanceID() string { return d.instance }

func (d *memoryDirectory) Claim(_ context.Context, peerID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.owners[peerID]; ok {
		return false, nil
	}
	d.owners[peerID] = d.instance
	return true, nil
}

func (d *memoryDirectory) Refresh(context.Context, string) error { return nil }

func (d *memoryDirectory) Lookup(_ context.Context, peerID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owners[peerID], nil
}

func (d *memoryDirectory) Release(_ context.Context, peerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owners[peerID] == d.instance {
		delete(d.owners, peerID)
	}
	return nil
}

func (d *memoryDirectory) Publish(_ context.Context, instance string, frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, published{instance: instance, frame: frame})
	return nil
}

func (d *memoryDirectory) Subscribe(context.Context) (<-chan []byte, error) {
	return d.frames, nil
}

func (d *memoryDirectory) snapshot() []published {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]published(nil), d.published...)
}

type fakePresence struct {
	internal_services.PresenceService
	mu      sync.Mutex
	owners  map[string]string
	removed []string
}

func (p *fakePresence) OwnerOf(_ context.Context, peerID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owners[peerID], nil
}

func (p *fakePresence) RemoveByPeer(_ context.Context, peerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, peerID)
	return nil
}

func (p *fakePresence) removedPeers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

type hubFixture struct {
	hub       *Hub
	directory *memoryDirectory
	presence  *fakePresence
	server    *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	cfg := config.SignalingConfig{PingInterval: time.Second, PeerTTL: time.Minute, AllowedOrigins: []string{"*"}}
	f := &hubFixture{
		directory: newMemoryDirectory("node-a"),
		presence:  &fakePresence{owners: map[string]string{}},
	}
	f.hub = NewHub(cfg, commons.NewNopLogger(), f.presence, f.directory)
	upgrader := NewUpgrader(cfg)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		auth := &types.UserPrinciple{UserId: r.URL.Query().Get("user")}
		f.hub.Serve(r.Context(), conn, auth, r.URL.Query().Get("id"))
	}))
	t.Cleanup(func() {
		f.hub.Close()
		f.server.Close()
	})
	return f
}

func (f *hubFixture) dial(t *testing.T, user, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?user=" + user
	if id != "" {
		url += "&id=" + id
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) *signaling.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg signaling.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func openID(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	msg := read(t, conn)
	require.Equal(t, signaling.MessageOpen, msg.Type)
	var open signaling.OpenPayload
	require.NoError(t, msg.Decode(&open))
	require.NotEmpty(t, open.ID)
	return open.ID
}

func readError(t *testing.T, conn *websocket.Conn) signaling.ErrorPayload {
	t.Helper()
	msg := read(t, conn)
	require.Equal(t, signaling.MessageError, msg.Type)
	var payload signaling.ErrorPayload
	require.NoError(t, msg.Decode(&payload))
	return payload
}

func TestHub_RelaysWithStampedSource(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "u-alice", "")
	bob := f.dial(t, "u-bob", "")
	aliceID := openID(t, alice)
	bobID := openID(t, bob)

	offer, err := signaling.NewMessage(signaling.MessageOffer, "spoofed", bobID, signaling.DescriptionPayload{CallID: "c1", Type: "offer", SDP: "v=0"})
	require.NoError(t, err)
	require.NoError(t, alice.WriteJSON(offer))

	got := read(t, bob)
	assert.Equal(t, signaling.MessageOffer, got.Type)
	assert.Equal(t, aliceID, got.Src)
	var desc signaling.DescriptionPayload
	require.NoError(t, got.Decode(&desc))
	assert.Equal(t, "c1", desc.CallID)

	answer, err := signaling.NewMessage(signaling.MessageAnswer, "", aliceID, signaling.DescriptionPayload{CallID: "c1", Type: "answer", SDP: "v=0"})
	require.NoError(t, err)
	require.NoError(t, bob.WriteJSON(answer))
	got = read(t, alice)
	assert.Equal(t, signaling.MessageAnswer, got.Type)
	assert.Equal(t, bobID, got.Src)
}

func TestHub_OfferToUnknownPeer(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "u-alice", "")
	openID(t, alice)

	candidate, err := signaling.NewMessage(signaling.MessageCandidate, "", "ghost", signaling.CandidatePayload{CallID: "c1"})
	require.NoError(t, err)
	require.NoError(t, alice.WriteJSON(candidate))

	offer, err := signaling.NewMessage(signaling.MessageOffer, "", "ghost", signaling.DescriptionPayload{CallID: "c1"})
	require.NoError(t, err)
	require.NoError(t, alice.WriteJSON(offer))

	// the candidate is dropped silently, so the first reply is the offer error
	payload := readError(t, alice)
	assert.Equal(t, signaling.ErrorPeerUnavailable, payload.Type)
	assert.Equal(t, "ghost", payload.Peer)
}

func TestHub_InvalidFrames(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "u-alice", "")
	openID(t, alice)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, signaling.ErrorInvalidMessage, readError(t, alice).Type)

	require.NoError(t, alice.WriteJSON(signaling.Message{Type: signaling.MessageOffer}))
	assert.Equal(t, signaling.ErrorInvalidMessage, readError(t, alice).Type)

	require.NoError(t, alice.WriteJSON(signaling.Message{Type: signaling.MessageOpen}))
	assert.Equal(t, signaling.ErrorInvalidMessage, readError(t, alice).Type)

	require.NoError(t, alice.WriteJSON(signaling.Message{Type: signaling.MessageHeartbeat}))
	require.NoError(t, alice.WriteJSON(signaling.Message{Type: "bogus"}))
	assert.Equal(t, signaling.ErrorInvalidMessage, readError(t, alice).Type, "heartbeat gets no reply")
}

func TestHub_RequestedIDs(t *testing.T) {
	f := newHubFixture(t)
	f.presence.owners["taken-by-bob"] = "u-bob"
	f.presence.owners["mine"] = "u-alice"

	t.Run("owned by another user", func(t *testing.T) {
		conn := f.dial(t, "u-alice", "taken-by-bob")
		payload := readError(t, conn)
		assert.Equal(t, signaling.ErrorUnavailableID, payload.Type)
	})

	t.Run("reconnect with own id", func(t *testing.T) {
		conn := f.dial(t, "u-alice", "mine")
		assert.Equal(t, "mine", openID(t, conn))

		second := f.dial(t, "u-alice", "mine")
		assert.Equal(t, signaling.ErrorUnavailableID, readError(t, second).Type, "already connected")
	})

	t.Run("free id", func(t *testing.T) {
		conn := f.dial(t, "u-carol", "fresh-id")
		assert.Equal(t, "fresh-id", openID(t, conn))
	})
}

func TestHub_DisconnectRemovesPresence(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "u-alice", "")
	id := openID(t, conn)
	assert.True(t, f.hub.Connected(id))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		removed := f.presence.removedPeers()
		return len(removed) == 1 && removed[0] == id && !f.hub.Connected(id)
	}, 2*time.Second, 10*time.Millisecond)

	owner, _ := f.directory.Lookup(context.Background(), id)
	assert.Empty(t, owner, "peer id released")
}

func TestHub_RoutesAcrossInstances(t *testing.T) {
	f := newHubFixture(t)
	f.directory.owners["remote-peer"] = "node-b"
	alice := f.dial(t, "u-alice", "")
	aliceID := openID(t, alice)

	offer, err := signaling.NewMessage(signaling.MessageOffer, "", "remote-peer", signaling.DescriptionPayload{CallID: "c9"})
	require.NoError(t, err)
	require.NoError(t, alice.WriteJSON(offer))

	assert.Eventually(t, func() bool { return len(f.directory.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	sent := f.directory.snapshot()[0]
	assert.Equal(t, "node-b", sent.instance)
	routed, err := signaling.Decode(sent.frame)
	require.NoError(t, err)
	assert.Equal(t, aliceID, routed.Src)
	assert.Equal(t, "remote-peer", routed.Dst)
}

func TestHub_RunDeliversRoutedFrames(t *testing.T) {
	f := newHubFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.hub.Run(ctx) }()

	bob := f.dial(t, "u-bob", "")
	bobID := openID(t, bob)

	frame, err := signaling.Encode(&signaling.Message{Type: signaling.MessageLeave, Src: "remote-peer", Dst: bobID, Payload: []byte(`{"callId":"c9"}`)})
	require.NoError(t, err)
	f.directory.frames <- frame

	got := read(t, bob)
	assert.Equal(t, signaling.MessageLeave, got.Type)
	assert.Equal(t, "remote-peer", got.Src)
}

func TestHub_CloseDisconnectsPeers(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "u-alice", "")
	openID(t, conn)

	f.hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestNewUpgrader_Origins(t *testing.T) {
	upgrader := NewUpgrader(config.SignalingConfig{AllowedOrigins: []string{"https://acaso.chat"}})
	req := httptest.NewRequest(http.MethodGet, "/v1/signal", nil)

	req.Header.Set("Origin", "https://acaso.chat")
	assert.True(t, upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))
}
