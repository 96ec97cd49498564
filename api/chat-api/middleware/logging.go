// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package chat_middleware

import (
	"time"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger tags every request with an id and logs it once served.
func RequestLogger(logger commons.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(utils.HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(utils.HEADER_REQUEST_ID, requestID)

		c.Next()

		logger.Debugw("request served",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
