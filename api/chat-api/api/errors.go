// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package chat_api

import (
	"errors"
	"net/http"

	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{internal_services.ErrUnauthenticated, http.StatusUnauthorized, utils.CODE_UNAUTHENTICATED},
	{internal_services.ErrInvalidCredentials, http.StatusUnauthorized, utils.CODE_INVALID_CREDENTIALS},
	{internal_services.ErrEmailNotConfirmed, http.StatusForbidden, utils.CODE_EMAIL_NOT_CONFIRMED},
	{internal_services.ErrConfirmationRequired, http.StatusForbidden, utils.CODE_CONFIRMATION_REQUIRED},
	{internal_services.ErrWeakPassword, http.StatusBadRequest, utils.CODE_WEAK_PASSWORD},
	{internal_services.ErrInvalidStatus, http.StatusBadRequest, utils.CODE_INVALID_STATUS},
	{internal_services.ErrRegistryUnavailable, http.StatusServiceUnavailable, utils.CODE_REGISTRY_UNAVAILABLE},
	{internal_services.ErrInvalidReason, http.StatusBadRequest, utils.CODE_INVALID_REASON},
	{internal_services.ErrUnknownPeer, http.StatusNotFound, utils.CODE_UNKNOWN_PEER},
	{internal_services.ErrSelfReport, http.StatusBadRequest, utils.CODE_SELF_REPORT},
}

// Fail writes the envelope for a service error. Unknown errors are logged and
// reported as internal.
func Fail(c *gin.Context, logger commons.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			utils.Error(c, m.status, m.code, err.Error())
			return
		}
	}
	logger.Errorw("request failed", "path", c.FullPath(), "error", err)
	utils.Error(c, http.StatusInternalServerError, utils.CODE_INTERNAL, "internal server error")
}

// BadRequest reports a body or query that failed binding.
func BadRequest(c *gin.Context, err error) {
	utils.Error(c, http.StatusBadRequest, utils.CODE_BAD_REQUEST, err.Error())
}
