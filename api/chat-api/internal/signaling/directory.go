// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/redis/go-redis/v9"
)

const (
	peerKeyPrefix      = "signal:peer:"
	routeChannelPrefix = "signal:route:"
)

// Directory records which hub instance holds each peer socket and carries
// frames between instances.
type Directory interface {
	InstanceID() string
	// Claim takes peerID for this instance, false when it is held elsewhere.
	Claim(ctx context.Context, peerID string) (bool, error)
	Refresh(ctx context.Context, peerID string) error
	// Lookup returns the instance holding peerID, "" when nobody does.
	Lookup(ctx context.Context, peerID string) (string, error)
	Release(ctx context.Context, peerID string) error
	Publish(ctx context.Context, instance string, payload []byte) error
	// Subscribe delivers frames published to this instance until ctx ends.
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

type redisDirectory struct {
	client     *redis.Client
	logger     commons.Logger
	instanceID string
	ttl        time.Duration
}

func NewRedisDirectory(redis connectors.RedisConnector, logger commons.Logger, ttl time.Duration) Directory {
	hostname, _ := os.Hostname()
	return NewRedisDirectoryWithInstance(redis, logger, ttl, fmt.Sprintf("%s:%d", hostname, os.Getpid()))
}

func NewRedisDirectoryWithInstance(redis connectors.RedisConnector, logger commons.Logger, ttl time.Duration, instanceID string) Directory {
	return &redisDirectory{
		client:     redis.GetConnection(),
		logger:     logger,
		instanceID: instanceID,
		ttl:        ttl,
	}
}

func peerKey(peerID string) string {
	return peerKeyPrefix + peerID
}

func routeChannel(instance string) string {
	return routeChannelPrefix + instance
}

func (d *redisDirectory) InstanceID() string {
	return d.instanceID
}

func (d *redisDirectory) Claim(ctx context.Context, peerID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, peerKey(peerID), d.instanceID, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim peer %s: %w", peerID, err)
	}
	return ok, nil
}

func (d *redisDirectory) Refresh(ctx context.Context, peerID string) error {
	if err := d.client.Expire(ctx, peerKey(peerID), d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh peer %s: %w", peerID, err)
	}
	return nil
}

func (d *redisDirectory) Lookup(ctx context.Context, peerID string) (string, error) {
	instance, err := d.client.Get(ctx, peerKey(peerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up peer %s: %w", peerID, err)
	}
	return instance, nil
}

// releaseLuaScript deletes the peer key only while this instance owns it.
var releaseLuaScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (d *redisDirectory) Release(ctx context.Context, peerID string) error {
	if err := releaseLuaScript.Run(ctx, d.client, []string{peerKey(peerID)}, d.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release peer %s: %w", peerID, err)
	}
	return nil
}

func (d *redisDirectory) Publish(ctx context.Context, instance string, payload []byte) error {
	if err := d.client.Publish(ctx, routeChannel(instance), payload).Err(); err != nil {
		return fmt.Errorf("failed to route frame to %s: %w", instance, err)
	}
	return nil
}

func (d *redisDirectory) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := d.client.Subscribe(ctx, routeChannel(d.instanceID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe %s: %w", routeChannel(d.instanceID), err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	d.logger.Infow("signaling route subscribed", "instance", d.instanceID)
	return out, nil
}
