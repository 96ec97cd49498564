// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package presence_api

import (
	"net/http"

	chat_api "github.com/acasochat/acaso/api/chat-api/api"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

type presenceApi struct {
	logger   commons.Logger
	presence internal_services.PresenceService
}

type RegisterRequest struct {
	PeerID string `json:"peerId" binding:"required"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// MatchResponse wraps the match so an empty registry answers {"match":null}.
type MatchResponse struct {
	Match *internal_services.Match `json:"match"`
}

func NewPresenceApi(logger commons.Logger, presence internal_services.PresenceService) *presenceApi {
	return &presenceApi{logger: logger, presence: presence}
}

// @Router /v1/presence [put]
func (p *presenceApi) Register(c *gin.Context) {
	auth, _ := types.GetAuthPrinciple(c)
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		chat_api.BadRequest(c, err)
		return
	}
	if err := p.presence.Register(c.Request.Context(), auth, req.PeerID); err != nil {
		chat_api.Fail(c, p.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, nil)
}

// @Router /v1/presence [patch]
func (p *presenceApi) UpdateStatus(c *gin.Context) {
	auth, _ := types.GetAuthPrinciple(c)
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		chat_api.BadRequest(c, err)
		return
	}
	if err := p.presence.UpdateStatus(c.Request.Context(), auth, req.Status); err != nil {
		chat_api.Fail(c, p.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, nil)
}

// @Router /v1/presence/match [get]
func (p *presenceApi) Match(c *gin.Context) {
	auth, _ := types.GetAuthPrinciple(c)
	match, err := p.presence.FindRandomPeer(c.Request.Context(), auth, c.Query("peerId"))
	if err != nil {
		chat_api.Fail(c, p.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, MatchResponse{Match: match})
}

// @Router /v1/presence [delete]
func (p *presenceApi) Remove(c *gin.Context) {
	auth, _ := types.GetAuthPrinciple(c)
	if err := p.presence.Remove(c.Request.Context(), auth); err != nil {
		chat_api.Fail(c, p.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, nil)
}
