// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package auth_api

import (
	"net/http"

	chat_api "github.com/acasochat/acaso/api/chat-api/api"
	"github.com/acasochat/acaso/api/chat-api/config"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
	"github.com/gin-gonic/gin"
)

type authApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	auth   internal_services.AuthService
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Country  string `json:"country"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func NewAuthApi(cfg *config.AppConfig, logger commons.Logger, auth internal_services.AuthService) *authApi {
	return &authApi{cfg: cfg, logger: logger, auth: auth}
}

// @Router /v1/auth/signup [post]
func (a *authApi) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		chat_api.BadRequest(c, err)
		return
	}
	session, err := a.auth.Signup(c.Request.Context(), req.Email, req.Password, req.Username, req.Country)
	if err != nil {
		chat_api.Fail(c, a.logger, err)
		return
	}
	utils.Success(c, http.StatusCreated, session)
}

// @Router /v1/auth/login [post]
func (a *authApi) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		chat_api.BadRequest(c, err)
		return
	}
	session, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		chat_api.Fail(c, a.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, session)
}

// @Router /v1/auth/logout [post]
func (a *authApi) Logout(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		chat_api.Fail(c, a.logger, internal_services.ErrUnauthenticated)
		return
	}
	if err := a.auth.Logout(c.Request.Context(), auth); err != nil {
		chat_api.Fail(c, a.logger, err)
		return
	}
	utils.Success(c, http.StatusOK, nil)
}

// @Router /v1/auth/me [get]
func (a *authApi) Me(c *gin.Context) {
	auth, ok := types.GetAuthPrinciple(c)
	if !ok {
		chat_api.Fail(c, a.logger, internal_services.ErrUnauthenticated)
		return
	}
	utils.Success(c, http.StatusOK, auth)
}
