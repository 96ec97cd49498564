// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_auth_service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type sessionClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Country  string `json:"country,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	postgres connectors.PostgresConnector
	sessions SessionStore
	now      func() time.Time
}

func NewAuthService(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector, sessions SessionStore) internal_services.AuthService {
	return &authService{
		cfg:      cfg,
		logger:   logger,
		postgres: postgres,
		sessions: sessions,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Signup(ctx context.Context, email, password, username, country string) (*internal_services.AuthSession, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return nil, internal_services.ErrWeakPassword
	}

	existing, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user := &internal_entity.User{
			Email:          email,
			PasswordHash:   string(hash),
			Username:       strings.TrimSpace(username),
			Country:        strings.TrimSpace(country),
			EmailConfirmed: !s.cfg.Auth.RequireEmailConfirmation,
		}
		if err := s.postgres.DB(ctx).Create(user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", email, err)
		}
		s.logger.Infow("user signed up", "user", user.Id, "confirmed", user.EmailConfirmed)

		if user.EmailConfirmed {
			return s.issue(ctx, user)
		}
	}

	// No session came out of signup, either the address needs confirmation
	// or it already belongs to an account. A login with the same
	// credentials settles both cases.
	session, err := s.Login(ctx, email, password)
	if err != nil {
		s.logger.Debugw("signup fallback login failed", "email", email, "error", err)
		return nil, internal_services.ErrConfirmationRequired
	}
	return session, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*internal_services.AuthSession, error) {
	user, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, internal_services.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, internal_services.ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, internal_services.ErrEmailNotConfirmed
	}
	return s.issue(ctx, user)
}

func (s *authService) Logout(ctx context.Context, auth types.SimplePrinciple) error {
	if auth == nil || auth.GetTokenId() == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, auth.GetTokenId()); err != nil {
		return err
	}
	s.logger.Infow("user logged out", "user", auth.GetUserId())
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*types.UserPrinciple, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, internal_services.ErrUnauthenticated
	}

	owner, err := s.sessions.Owner(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if owner == "" || owner != claims.Subject {
		return nil, internal_services.ErrUnauthenticated
	}

	principle := &types.UserPrinciple{
		UserId:       claims.Subject,
		Email:        claims.Email,
		Username:     claims.Username,
		Country:      claims.Country,
		CurrentToken: token,
		TokenId:      claims.ID,
	}
	if claims.ExpiresAt != nil {
		principle.ExpiresAt = claims.ExpiresAt.Time
	}
	return principle, nil
}

func (s *authService) issue(ctx context.Context, user *internal_entity.User) (*internal_services.AuthSession, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.Auth.TokenTTL)
	principle := user.ToPrinciple()

	claims := sessionClaims{
		Email:    principle.Email,
		Username: principle.Username,
		Country:  principle.Country,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Id,
			Issuer:    s.cfg.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session for %s: %w", user.Id, err)
	}
	if err := s.sessions.Save(ctx, claims.ID, user.Id, s.cfg.Auth.TokenTTL); err != nil {
		return nil, err
	}

	principle.CurrentToken = signed
	principle.TokenId = claims.ID
	principle.ExpiresAt = expiresAt
	return &internal_services.AuthSession{User: principle, Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *authService) findByEmail(ctx context.Context, email string) (*internal_entity.User, error) {
	var user internal_entity.User
	err := s.postgres.DB(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", email, err)
	}
	return &user, nil
}
