// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package chat_app assembles the chat-api from connected stores: services,
// signaling hub, presence sweeper and the HTTP server.
package chat_app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	internal_auth_service "github.com/acasochat/acaso/api/chat-api/internal/services/auth"
	internal_moderation_service "github.com/acasochat/acaso/api/chat-api/internal/services/moderation"
	internal_presence_service "github.com/acasochat/acaso/api/chat-api/internal/services/presence"
	internal_signaling "github.com/acasochat/acaso/api/chat-api/internal/signaling"
	chat_routers "github.com/acasochat/acaso/api/chat-api/router"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type ChatApp struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	presence  internal_services.PresenceService
	directory internal_signaling.Directory
	hub       *internal_signaling.Hub
	server    *http.Server
}

// NewChatApp migrates the schema and wires every service on top of already
// connected postgres and redis connectors.
func NewChatApp(ctx context.Context, cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector, redis connectors.RedisConnector) (*ChatApp, error) {
	if err := postgres.Migrate(ctx, internal_entity.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	presence := internal_presence_service.NewPresenceService(cfg, logger, postgres)
	services := chat_routers.Services{
		Auth:       internal_auth_service.NewAuthService(cfg, logger, postgres, internal_auth_service.NewRedisSessionStore(redis)),
		Presence:   presence,
		Moderation: internal_moderation_service.NewModerationService(logger, postgres, presence),
	}
	directory := internal_signaling.NewRedisDirectory(redis, logger, cfg.Signaling.PeerTTL)
	hub := internal_signaling.NewHub(cfg.Signaling, logger, presence, directory)

	return &ChatApp{
		cfg:       cfg,
		logger:    logger,
		presence:  presence,
		directory: directory,
		hub:       hub,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           chat_routers.NewEngine(cfg, logger, services, hub, postgres, redis),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *ChatApp) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP, routes signaling frames and sweeps stale presence until
// ctx is cancelled or one of them fails.
func (a *ChatApp) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infow("chat-api listening", "addr", a.server.Addr, "instance", a.directory.InstanceID())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.hub.Run(gCtx)
	})
	g.Go(func() error {
		return internal_presence_service.RunSweeper(gCtx, a.logger, a.presence, a.cfg.Presence.SweepInterval)
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
