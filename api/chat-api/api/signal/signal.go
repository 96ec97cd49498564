// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package signal_api

import (
	"net/http"

	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	internal_signaling "github.com/acasochat/acaso/api/chat-api/internal/signaling"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type signalApi struct {
	logger   commons.Logger
	hub      *internal_signaling.Hub
	upgrader *websocket.Upgrader
}

func NewSignalApi(logger commons.Logger, hub *internal_signaling.Hub, upgrader *websocket.Upgrader) *signalApi {
	return &signalApi{logger: logger, hub: hub, upgrader: upgrader}
}

// Connect upgrades to the signaling socket. The socket only carries SDP and
// ICE frames, media flows peer to peer.
//
// @Router /v1/signal [get]
func (s *signalApi) Connect(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, utils.CODE_UNAUTHENTICATED, internal_services.ErrUnauthenticated.Error())
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("signaling upgrade failed", "user", auth.GetUserId(), "error", err)
		return
	}
	s.hub.Serve(c.Request.Context(), conn, auth, c.Query("id"))
}
