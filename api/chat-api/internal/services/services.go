// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_services

import (
	"context"
	"errors"
	"time"

	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	"github.com/acasochat/acaso/pkg/types"
)

var (
	ErrUnauthenticated      = errors.New("user not authenticated")
	ErrInvalidCredentials   = errors.New("invalid login credentials")
	ErrEmailNotConfirmed    = errors.New("email not confirmed")
	ErrConfirmationRequired = errors.New("Cadastro realizado! Porém, o servidor exigiu confirmação de e-mail. Verifique sua caixa de entrada.")
	ErrWeakPassword         = errors.New("password should be at least 6 characters")

	ErrInvalidStatus       = errors.New("status must be waiting or chatting")
	ErrRegistryUnavailable = errors.New("relation \"rooms\" does not exist")

	ErrInvalidReason = errors.New("unknown report reason")
	ErrUnknownPeer   = errors.New("peer is not registered")
	ErrSelfReport    = errors.New("cannot report yourself")
)

// AuthSession is what signup and login hand back to the caller.
type AuthSession struct {
	User      *types.UserPrinciple `json:"user"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

type AuthService interface {
	// Signup creates the account. When no session can be issued straight
	// away it retries as a login and returns ErrConfirmationRequired if that
	// fails too.
	Signup(ctx context.Context, email, password, username, country string) (*AuthSession, error)
	Login(ctx context.Context, email, password string) (*AuthSession, error)
	// Logout revokes the token carried by auth. Revoking twice is fine.
	Logout(ctx context.Context, auth types.SimplePrinciple) error
	// Authenticate resolves a bearer token, ErrUnauthenticated when the
	// token is malformed, expired or revoked.
	Authenticate(ctx context.Context, token string) (*types.UserPrinciple, error)
}

// Match is a partner picked from the registry.
type Match struct {
	PeerID  string `json:"peerId"`
	Country string `json:"country,omitempty"`
}

type PresenceService interface {
	// Register upserts the caller's row as waiting with the given peer id.
	Register(ctx context.Context, auth types.SimplePrinciple, peerID string) error
	UpdateStatus(ctx context.Context, auth types.SimplePrinciple, status string) error
	// FindRandomPeer picks one waiting partner at random from a bounded
	// batch. A nil match with a nil error means nobody is waiting.
	FindRandomPeer(ctx context.Context, auth types.SimplePrinciple, myPeerID string) (*Match, error)
	Remove(ctx context.Context, auth types.SimplePrinciple) error
	RemoveByPeer(ctx context.Context, peerID string) error
	// OwnerOf resolves the user that registered peerID.
	OwnerOf(ctx context.Context, peerID string) (string, error)
	// Sweep deletes waiting rows that stopped refreshing.
	Sweep(ctx context.Context) (int64, error)
}

type ModerationService interface {
	Report(ctx context.Context, auth types.SimplePrinciple, peerID, reason string) (*internal_entity.Report, error)
}
