// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package types

import (
	"time"

	"github.com/gin-gonic/gin"
)

const CTX_AUTH_PRINCIPLE = "__auth_principle"

// SimplePrinciple is what handlers and services know about the caller.
type SimplePrinciple interface {
	GetUserId() string
	GetEmail() string
	GetUsername() string
	GetCountry() string
	GetCurrentToken() string
	GetTokenId() string
}

// UserPrinciple is the principle resolved from a bearer session token.
type UserPrinciple struct {
	UserId       string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Country      string    `json:"country,omitempty"`
	CurrentToken string    `json:"-"`
	TokenId      string    `json:"-"`
	ExpiresAt    time.Time `json:"-"`
}

func (u *UserPrinciple) GetUserId() string       { return u.UserId }
func (u *UserPrinciple) GetEmail() string        { return u.Email }
func (u *UserPrinciple) GetUsername() string     { return u.Username }
func (u *UserPrinciple) GetCountry() string      { return u.Country }
func (u *UserPrinciple) GetCurrentToken() string { return u.CurrentToken }
func (u *UserPrinciple) GetTokenId() string      { return u.TokenId }

func SetAuthPrinciple(c *gin.Context, p SimplePrinciple) {
	c.Set(CTX_AUTH_PRINCIPLE, p)
}

// GetAuthPrinciple returns the authenticated caller, false when the request
// never passed the auth middleware.
func GetAuthPrinciple(c *gin.Context) (SimplePrinciple, bool) {
	v, ok := c.Get(CTX_AUTH_PRINCIPLE)
	if !ok {
		return nil, false
	}
	p, ok := v.(SimplePrinciple)
	if !ok || p == nil || p.GetUserId() == "" {
		return nil, false
	}
	return p, true
}
