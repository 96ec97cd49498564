// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"errors"
	"fmt"

	"github.com/acasochat/acaso/pkg/signaling"
)

type ErrorType string

const (
	ErrorPeerUnavailable ErrorType = "peer-unavailable"
	ErrorUnavailableID   ErrorType = "unavailable-id"
	ErrorNetwork         ErrorType = "network"
	ErrorServerError     ErrorType = "server-error"
)

var (
	ErrDestroyed       = errors.New("peer destroyed")
	ErrNotConnected    = errors.New("peer not connected to the signaling server")
	ErrCallClosed      = errors.New("call closed")
	ErrAlreadyAnswered = errors.New("call already answered")
	ErrNotIncoming     = errors.New("only incoming calls can be answered")
)

// Error is reported through OnError and returned by Open and Reconnect.
type Error struct {
	Type ErrorType
	Peer string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Type)
	if e.Peer != "" {
		msg += " (" + e.Peer + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a peer Error of type t.
func IsType(err error, t ErrorType) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == t
}

func fromPayload(p signaling.ErrorPayload) *Error {
	e := &Error{Peer: p.Peer}
	switch p.Type {
	case signaling.ErrorPeerUnavailable:
		e.Type = ErrorPeerUnavailable
	case signaling.ErrorUnavailableID:
		e.Type = ErrorUnavailableID
	default:
		e.Type = ErrorServerError
	}
	if p.Message != "" {
		e.Err = errors.New(p.Message)
	}
	return e
}
