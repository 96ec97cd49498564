package peer

import (
	"net/url"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalURL(t *testing.T) {
	tests := []struct {
		name      string
		server    string
		requested string
		wantHost  string
		wantPath  string
		wantScm   string
	}{
		{"http becomes ws", "http://localhost:9000", "", "localhost:9000", "/v1/signal", "ws"},
		{"https becomes wss", "https://chat.example.com/", "abc", "chat.example.com", "/v1/signal", "wss"},
		{"base path kept", "ws://host/api", "", "host", "/api/v1/signal", "ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ServerURL: tt.server, Token: "tok"}
			raw, err := cfg.signalURL(tt.requested)
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScm, u.Scheme)
			assert.Equal(t, tt.wantHost, u.Host)
			assert.Equal(t, tt.wantPath, u.Path)
			assert.Equal(t, "tok", u.Query().Get("token"))
			assert.Equal(t, tt.requested, u.Query().Get("id"))
		})
	}
}

func TestSignalURL_RejectsUnknownScheme(t *testing.T) {
	_, err := Config{ServerURL: "ftp://host"}.signalURL("")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.ICEServers, 5)
	assert.Equal(t, "stun:stun.l.google.com:19302", cfg.ICEServers[0].URLs[0])
	assert.Equal(t, defaultHeartbeatInterval, cfg.HeartbeatInterval)
}

func TestRTCConfiguration(t *testing.T) {
	cfg := Config{
		ICEServers:         []ICEServer{{URLs: []string{"turn:turn.example.com"}, Username: "u", Credential: "p"}},
		ICETransportPolicy: "relay",
	}
	rtc := cfg.rtcConfiguration()
	require.Len(t, rtc.ICEServers, 1)
	assert.Equal(t, "u", rtc.ICEServers[0].Username)
	assert.Equal(t, webrtc.ICETransportPolicyRelay, rtc.ICETransportPolicy)

	assert.Equal(t, webrtc.ICETransportPolicyAll, Config{}.rtcConfiguration().ICETransportPolicy)
}
