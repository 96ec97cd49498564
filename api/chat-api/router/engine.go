// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package chat_routers

import (
	"github.com/acasochat/acaso/api/chat-api/config"
	internal_signaling "github.com/acasochat/acaso/api/chat-api/internal/signaling"
	chat_middleware "github.com/acasochat/acaso/api/chat-api/middleware"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine builds the gin engine with every chat-api route mounted.
func NewEngine(cfg *config.AppConfig, logger commons.Logger, services Services, hub *internal_signaling.Hub, deps ...connectors.Connector) *gin.Engine {
	if utils.FromEnvironmentStr(cfg.Env) == utils.PRODUCTION {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(chat_middleware.RequestLogger(logger))
	engine.Use(cors.New(corsConfig(cfg.CORS)))

	HealthCheckRoutes(cfg, engine, logger, deps...)
	AuthApiRoute(cfg, engine, logger, services)
	PresenceApiRoute(engine, logger, services)
	ModerationApiRoute(engine, logger, services)
	CatalogApiRoute(engine)
	SignalApiRoute(cfg, engine, logger, services, hub)
	return engine
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, utils.HEADER_AUTH_KEY, utils.HEADER_REQUEST_ID)
	c.ExposeHeaders = []string{utils.HEADER_REQUEST_ID}
	for _, origin := range origins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}
