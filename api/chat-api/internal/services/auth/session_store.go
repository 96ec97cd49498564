// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_auth_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionStore tracks live token ids so a logout can revoke a token before
// it expires.
type SessionStore interface {
	Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	// Owner returns the user of a live token id, "" when it is unknown.
	Owner(ctx context.Context, tokenID string) (string, error)
	Revoke(ctx context.Context, tokenID string) error
}

type redisSessionStore struct {
	redis connectors.RedisConnector
}

func NewRedisSessionStore(redis connectors.RedisConnector) SessionStore {
	return &redisSessionStore{redis: redis}
}

func sessionKey(tokenID string) string {
	return sessionKeyPrefix + tokenID
}

func (s *redisSessionStore) Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	if err := s.redis.GetConnection().Set(ctx, sessionKey(tokenID), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", tokenID, err)
	}
	return nil
}

func (s *redisSessionStore) Owner(ctx context.Context, tokenID string) (string, error) {
	userID, err := s.redis.GetConnection().Get(ctx, sessionKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session %s: %w", tokenID, err)
	}
	return userID, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, tokenID string) error {
	if err := s.redis.GetConnection().Del(ctx, sessionKey(tokenID)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session %s: %w", tokenID, err)
	}
	return nil
}
