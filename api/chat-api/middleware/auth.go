// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package chat_middleware

import (
	"net/http"
	"strings"

	chat_api "github.com/acasochat/acaso/api/chat-api/api"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

// BearerToken reads the token from the Authorization header, falling back to
// the token query parameter.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader(utils.HEADER_AUTH_KEY)
	if strings.HasPrefix(header, utils.BEARER_PREFIX) {
		return strings.TrimSpace(strings.TrimPrefix(header, utils.BEARER_PREFIX))
	}
	return strings.TrimSpace(c.Query(utils.QUERY_TOKEN_KEY))
}

// Authenticate rejects the request unless it carries a live session token.
func Authenticate(logger commons.Logger, auth internal_services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			utils.Error(c, http.StatusUnauthorized, utils.CODE_UNAUTHENTICATED, internal_services.ErrUnauthenticated.Error())
			return
		}
		principle, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			chat_api.Fail(c, logger, err)
			return
		}
		types.SetAuthPrinciple(c, principle)
		c.Next()
	}
}
