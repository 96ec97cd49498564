// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package signaling holds the wire format spoken between the chat-api hub and
// peers. Every frame is one JSON Message.
package signaling

import (
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	MessageOpen      MessageType = "open"
	MessageError     MessageType = "error"
	MessageOffer     MessageType = "offer"
	MessageAnswer    MessageType = "answer"
	MessageCandidate MessageType = "candidate"
	MessageLeave     MessageType = "leave"
	MessageHeartbeat MessageType = "heartbeat"
)

// Relayed reports whether the hub forwards this type to Dst.
func (t MessageType) Relayed() bool {
	switch t {
	case MessageOffer, MessageAnswer, MessageCandidate, MessageLeave:
		return true
	}
	return false
}

// error payload types
const (
	ErrorPeerUnavailable = "peer-unavailable"
	ErrorUnavailableID   = "unavailable-id"
	ErrorInvalidMessage  = "invalid-message"
	ErrorServer          = "server-error"
)

type Message struct {
	Type    MessageType     `json:"type"`
	Src     string          `json:"src,omitempty"`
	Dst     string          `json:"dst,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type OpenPayload struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Type    string `json:"type"`
	Peer    string `json:"peer,omitempty"`
	Message string `json:"message,omitempty"`
}

// DescriptionPayload carries an offer or an answer for one call.
type DescriptionPayload struct {
	CallID string `json:"callId"`
	Type   string `json:"type"`
	SDP    string `json:"sdp"`
}

type CandidatePayload struct {
	CallID           string  `json:"callId"`
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

type LeavePayload struct {
	CallID string `json:"callId"`
}

func NewMessage(t MessageType, src, dst string, payload interface{}) (*Message, error) {
	msg := &Message{Type: t, Src: src, Dst: dst}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", t, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

func NewError(errType, peer, message string) *Message {
	msg, _ := NewMessage(MessageError, "", "", ErrorPayload{Type: errType, Peer: peer, Message: message})
	return msg
}

func (m *Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode signaling message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("signaling message without type")
	}
	return &m, nil
}
