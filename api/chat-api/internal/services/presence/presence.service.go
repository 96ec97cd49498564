// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_presence_service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/acasochat/acaso/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMatchBatch = 20

type presenceService struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	postgres connectors.PostgresConnector
	now      func() time.Time
	pick     func(n int) int
}

func NewPresenceService(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) internal_services.PresenceService {
	return &presenceService{
		cfg:      cfg,
		logger:   logger,
		postgres: postgres,
		now:      func() time.Time { return time.Now().UTC() },
		pick:     rand.IntN,
	}
}

// registryError maps a missing rooms table to ErrRegistryUnavailable. The
// drivers only report it through the message text.
func registryError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such table") {
		return fmt.Errorf("%w: %s", internal_services.ErrRegistryUnavailable, msg)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *presenceService) Register(ctx context.Context, auth types.SimplePrinciple, peerID string) error {
	if auth == nil || auth.GetUserId() == "" {
		return internal_services.ErrUnauthenticated
	}
	row := &internal_entity.Presence{
		UserID:    auth.GetUserId(),
		PeerID:    peerID,
		Status:    internal_entity.StatusWaiting,
		Country:   auth.GetCountry(),
		UpdatedAt: s.now(),
	}
	err := s.postgres.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"peer_id", "status", "country", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return registryError("register presence", err)
	}
	s.logger.Debugw("presence registered", "user", row.UserID, "peer", peerID)
	return nil
}

func (s *presenceService) UpdateStatus(ctx context.Context, auth types.SimplePrinciple, status string) error {
	if auth == nil || auth.GetUserId() == "" {
		return internal_services.ErrUnauthenticated
	}
	if !internal_entity.ValidStatus(status) {
		return internal_services.ErrInvalidStatus
	}
	err := s.postgres.DB(ctx).
		Model(&internal_entity.Presence{}).
		Where("user_id = ?", auth.GetUserId()).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now()}).Error
	if err != nil {
		return registryError("update presence status", err)
	}
	s.logger.Debugw("presence status updated", "user", auth.GetUserId(), "status", status)
	return nil
}

func (s *presenceService) FindRandomPeer(ctx context.Context, auth types.SimplePrinciple, myPeerID string) (*internal_services.Match, error) {
	if auth == nil || auth.GetUserId() == "" {
		return nil, internal_services.ErrUnauthenticated
	}
	userID := auth.GetUserId()
	now := s.now()
	db := s.postgres.DB(ctx)

	// polling doubles as a heartbeat for the caller's own row
	if err := db.Model(&internal_entity.Presence{}).
		Where("user_id = ?", userID).
		Update("updated_at", now).Error; err != nil {
		return nil, registryError("refresh presence", err)
	}

	blocked := s.postgres.DB(ctx).Model(&internal_entity.Block{}).
		Select("blocked_user_id").Where("user_id = ?", userID)
	blockedBy := s.postgres.DB(ctx).Model(&internal_entity.Block{}).
		Select("user_id").Where("blocked_user_id = ?", userID)

	query := s.postgres.DB(ctx).
		Model(&internal_entity.Presence{}).
		Where("status = ?", internal_entity.StatusWaiting).
		Where("peer_id <> ?", myPeerID).
		Where("user_id <> ?", userID).
		Where("user_id NOT IN (?)", blocked).
		Where("user_id NOT IN (?)", blockedBy)
	if s.cfg.Presence.StaleAfter > 0 {
		query = query.Where("updated_at >= ?", now.Add(-s.cfg.Presence.StaleAfter))
	}

	batch := s.cfg.Presence.MatchBatch
	if batch <= 0 {
		batch = defaultMatchBatch
	}
	var candidates []internal_entity.Presence
	if err := query.Limit(batch).Find(&candidates).Error; err != nil {
		return nil, registryError("find random peer", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	chosen := candidates[s.pick(len(candidates))]
	s.logger.Debugw("random peer picked", "user", userID, "peer", chosen.PeerID, "candidates", len(candidates))
	return &internal_services.Match{PeerID: chosen.PeerID, Country: chosen.Country}, nil
}

func (s *presenceService) Remove(ctx context.Context, auth types.SimplePrinciple) error {
	if auth == nil || auth.GetUserId() == "" {
		return internal_services.ErrUnauthenticated
	}
	err := s.postgres.DB(ctx).
		Where("user_id = ?", auth.GetUserId()).
		Delete(&internal_entity.Presence{}).Error
	if err != nil {
		return registryError("remove presence", err)
	}
	return nil
}

func (s *presenceService) RemoveByPeer(ctx context.Context, peerID string) error {
	if peerID == "" {
		return nil
	}
	result := s.postgres.DB(ctx).
		Where("peer_id = ?", peerID).
		Delete(&internal_entity.Presence{})
	if result.Error != nil {
		return registryError("remove presence by peer", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Debugw("presence removed for disconnected peer", "peer", peerID)
	}
	return nil
}

func (s *presenceService) OwnerOf(ctx context.Context, peerID string) (string, error) {
	var row internal_entity.Presence
	err := s.postgres.DB(ctx).Where("peer_id = ?", peerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", registryError("resolve peer owner", err)
	}
	return row.UserID, nil
}

func (s *presenceService) Sweep(ctx context.Context) (int64, error) {
	if s.cfg.Presence.StaleAfter <= 0 {
		return 0, nil
	}
	result := s.postgres.DB(ctx).
		Where("status = ? AND updated_at < ?", internal_entity.StatusWaiting, s.now().Add(-s.cfg.Presence.StaleAfter)).
		Delete(&internal_entity.Presence{})
	if result.Error != nil {
		return 0, registryError("sweep presence", result.Error)
	}
	return result.RowsAffected, nil
}
