// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	signalPath               = "/v1/signal"
	defaultHeartbeatInterval = 15 * time.Second
	openTimeout              = 10 * time.Second
	writeWait                = 10 * time.Second
	rtpBufferSize            = 1500
)

// ICEServer is a STUN or TURN server handed to every peer connection.
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

type Config struct {
	// ServerURL is the chat-api base URL, http(s) or ws(s).
	ServerURL          string
	Token              string
	ICEServers         []ICEServer
	ICETransportPolicy string // "all" or "relay"
	HeartbeatInterval  time.Duration
	// RecordDir, when set, receives one IVF or Ogg file per remote track.
	RecordDir string
}

func DefaultICEServers() []ICEServer {
	return []ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{URLs: []string{"stun:stun1.l.google.com:19302"}},
		{URLs: []string{"stun:stun2.l.google.com:19302"}},
		{URLs: []string{"stun:stun3.l.google.com:19302"}},
		{URLs: []string{"stun:stun4.l.google.com:19302"}},
	}
}

func DefaultConfig() Config {
	return Config{
		ICEServers:         DefaultICEServers(),
		ICETransportPolicy: "all",
		HeartbeatInterval:  defaultHeartbeatInterval,
	}
}

func (c Config) signalURL(requestedID string) (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", c.ServerURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + signalPath

	q := u.Query()
	q.Set("token", c.Token)
	if requestedID != "" {
		q.Set("id", requestedID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c Config) rtcConfiguration() webrtc.Configuration {
	iceServers := make([]webrtc.ICEServer, len(c.ICEServers))
	for i, srv := range c.ICEServers {
		iceServers[i] = webrtc.ICEServer{
			URLs:       srv.URLs,
			Username:   srv.Username,
			Credential: srv.Credential,
		}
	}
	cfg := webrtc.Configuration{ICEServers: iceServers}
	if c.ICETransportPolicy == "relay" {
		cfg.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	return cfg
}
