// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package moderation_api

import (
	"net/http"

	chat_api "github.com/acasochat/acaso/api/chat-api/api"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

type moderationApi struct {
	logger     commons.Logger
	moderation internal_services.ModerationService
}

type ReportRequest struct {
	PeerID string `json:"peerId" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func NewModerationApi(logger commons.Logger, moderation internal_services.ModerationService) *moderationApi {
	return &moderationApi{logger: logger, moderation: moderation}
}

// @Router /v1/moderation/reports [post]
func (m *moderationApi) Report(c *gin.Context) {
	auth, _ := types.GetAuthPrinciple(c)
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		chat_api.BadRequest(c, err)
		return
	}
	report, err := m.moderation.Report(c.Request.Context(), auth, req.PeerID, req.Reason)
	if err != nil {
		chat_api.Fail(c, m.logger, err)
		return
	}
	utils.Success(c, http.StatusCreated, report)
}
