// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package connectors

import (
	"context"
	"fmt"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/configs"
	"github.com/redis/go-redis/v9"
)

type RedisConnector interface {
	Connector
	GetConnection() *redis.Client
}

type redisConnector struct {
	cfg    configs.RedisConfig
	logger commons.Logger
	client *redis.Client
}

func NewRedisConnector(cfg configs.RedisConfig, logger commons.Logger) RedisConnector {
	return &redisConnector{cfg: cfg, logger: logger}
}

// NewRedisConnectorWithClient wraps an already built client; used with
// redismock in tests.
func NewRedisConnectorWithClient(client *redis.Client, logger commons.Logger) RedisConnector {
	return &redisConnector{client: client, logger: logger}
}

func (r *redisConnector) Name() string {
	return fmt.Sprintf("redis://%s/%d", r.cfg.Addr(), r.cfg.Db)
}

func (r *redisConnector) Connect(ctx context.Context) error {
	opts := &redis.Options{
		Addr:     r.cfg.Addr(),
		Username: r.cfg.Auth.User,
		Password: r.cfg.Auth.Password,
		DB:       r.cfg.Db,
	}
	if r.cfg.MaxConnection > 0 {
		opts.PoolSize = r.cfg.MaxConnection
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to ping %s: %w", r.Name(), err)
	}
	r.client = client
	r.logger.Infof("connected to %s", r.Name())
	return nil
}

func (r *redisConnector) GetConnection() *redis.Client {
	return r.client
}

func (r *redisConnector) IsConnected(ctx context.Context) bool {
	if r.client == nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

func (r *redisConnector) Disconnect(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	r.logger.Infof("disconnecting %s", r.Name())
	return r.client.Close()
}
