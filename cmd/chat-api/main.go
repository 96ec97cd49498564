// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	chat_app "github.com/acasochat/acaso/api/chat-api/app"
	"github.com/acasochat/acaso/api/chat-api/config"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	opts := []commons.Option{commons.Level(cfg.LogLevel), commons.Name(cfg.Name)}
	if cfg.LogPath != "" {
		opts = append(opts, commons.EnableFile(cfg.LogPath))
	}
	logger, err := commons.NewApplicationLogger(opts...)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infow("shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorw("chat-api stopped with error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) error {
	postgres := connectors.NewPostgresConnector(cfg.PostgresConfig, logger)
	if err := postgres.Connect(ctx); err != nil {
		return err
	}
	defer postgres.Disconnect(context.Background())

	redis := connectors.NewRedisConnector(cfg.RedisConfig, logger)
	if err := redis.Connect(ctx); err != nil {
		return err
	}
	defer redis.Disconnect(context.Background())

	app, err := chat_app.NewChatApp(ctx, cfg, logger, postgres, redis)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
