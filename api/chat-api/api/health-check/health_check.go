// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health_check_api

import (
	"net/http"

	"github.com/acasochat/acaso/api/chat-api/config"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/gin-gonic/gin"
)

type healthCheckApi struct {
	cfg        *config.AppConfig
	logger     commons.Logger
	connectors []connectors.Connector
}

func New(cfg *config.AppConfig, logger commons.Logger, deps ...connectors.Connector) *healthCheckApi {
	return &healthCheckApi{cfg: cfg, logger: logger, connectors: deps}
}

// @Router /healthz/ [get]
func (h *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"healthy": true, "service": h.cfg.Name, "version": h.cfg.Version})
}

// @Router /readiness/ [get]
func (h *healthCheckApi) Readiness(c *gin.Context) {
	status := gin.H{}
	ready := true
	for _, conn := range h.connectors {
		ok := conn.IsConnected(c.Request.Context())
		status[conn.Name()] = ok
		if !ok {
			ready = false
			h.logger.Warnf("readiness check failed for %s", conn.Name())
		}
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ready": ready, "connectors": status})
}
