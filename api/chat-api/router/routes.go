// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package chat_routers

import (
	auth_api "github.com/acasochat/acaso/api/chat-api/api/auth"
	catalog_api "github.com/acasochat/acaso/api/chat-api/api/catalog"
	health_check_api "github.com/acasochat/acaso/api/chat-api/api/health-check"
	moderation_api "github.com/acasochat/acaso/api/chat-api/api/moderation"
	presence_api "github.com/acasochat/acaso/api/chat-api/api/presence"
	signal_api "github.com/acasochat/acaso/api/chat-api/api/signal"
	"github.com/acasochat/acaso/api/chat-api/config"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	internal_signaling "github.com/acasochat/acaso/api/chat-api/internal/signaling"
	chat_middleware "github.com/acasochat/acaso/api/chat-api/middleware"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/gin-gonic/gin"
)

// Services bundles what the routes call into.
type Services struct {
	Auth       internal_services.AuthService
	Presence   internal_services.PresenceService
	Moderation internal_services.ModerationService
}

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, deps ...connectors.Connector) {
	logger.Info("Internal HealthCheckRoutes and Connectors added to engine.")
	apiv1 := engine.Group("")
	hcApi := health_check_api.New(cfg, logger, deps...)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}

func AuthApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, services Services) {
	apiv1 := engine.Group("v1/auth")
	authApi := auth_api.NewAuthApi(cfg, logger, services.Auth)
	authenticated := chat_middleware.Authenticate(logger, services.Auth)
	{
		apiv1.POST("/signup", authApi.Signup)
		apiv1.POST("/login", authApi.Login)
		apiv1.POST("/logout", authenticated, authApi.Logout)
		apiv1.GET("/me", authenticated, authApi.Me)
	}
}

func PresenceApiRoute(engine *gin.Engine, logger commons.Logger, services Services) {
	apiv1 := engine.Group("v1/presence", chat_middleware.Authenticate(logger, services.Auth))
	presenceApi := presence_api.NewPresenceApi(logger, services.Presence)
	{
		apiv1.PUT("", presenceApi.Register)
		apiv1.PATCH("", presenceApi.UpdateStatus)
		apiv1.GET("/match", presenceApi.Match)
		apiv1.DELETE("", presenceApi.Remove)
	}
}

func ModerationApiRoute(engine *gin.Engine, logger commons.Logger, services Services) {
	apiv1 := engine.Group("v1/moderation", chat_middleware.Authenticate(logger, services.Auth))
	moderationApi := moderation_api.NewModerationApi(logger, services.Moderation)
	{
		apiv1.POST("/reports", moderationApi.Report)
	}
}

func CatalogApiRoute(engine *gin.Engine) {
	apiv1 := engine.Group("v1/catalog")
	{
		apiv1.GET("/filters", catalog_api.Filters)
		apiv1.GET("/report-reasons", catalog_api.ReportReasons)
	}
}

func SignalApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, services Services, hub *internal_signaling.Hub) {
	apiv1 := engine.Group("v1", chat_middleware.Authenticate(logger, services.Auth))
	signalApi := signal_api.NewSignalApi(logger, hub, internal_signaling.NewUpgrader(cfg.Signaling))
	{
		apiv1.GET("/signal", signalApi.Connect)
	}
}
