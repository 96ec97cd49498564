// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_moderation_service

import (
	"context"
	"fmt"
	"time"

	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/catalog"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/acasochat/acaso/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type moderationService struct {
	logger   commons.Logger
	postgres connectors.PostgresConnector
	presence internal_services.PresenceService
}

func NewModerationService(logger commons.Logger, postgres connectors.PostgresConnector, presence internal_services.PresenceService) internal_services.ModerationService {
	return &moderationService{
		logger:   logger,
		postgres: postgres,
		presence: presence,
	}
}

// Report stores the complaint and blocks the reported user for the reporter
// so the pair is never matched again.
func (s *moderationService) Report(ctx context.Context, auth types.SimplePrinciple, peerID, reason string) (*internal_entity.Report, error) {
	if auth == nil || auth.GetUserId() == "" {
		return nil, internal_services.ErrUnauthenticated
	}
	parsed, ok := catalog.ParseReportReason(reason)
	if !ok {
		return nil, internal_services.ErrInvalidReason
	}

	reportedID, err := s.presence.OwnerOf(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if reportedID == "" {
		return nil, internal_services.ErrUnknownPeer
	}
	if reportedID == auth.GetUserId() {
		return nil, internal_services.ErrSelfReport
	}

	report := &internal_entity.Report{
		ReporterID:     auth.GetUserId(),
		ReportedID:     reportedID,
		ReportedPeerID: peerID,
		Reason:         string(parsed),
	}
	err = s.postgres.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		block := &internal_entity.Block{
			UserID:        auth.GetUserId(),
			BlockedUserID: reportedID,
			CreatedDate:   time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(block).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store report against %s: %w", peerID, err)
	}

	s.logger.Infow("peer reported", "reporter", auth.GetUserId(), "reported", reportedID, "reason", report.Reason)
	return report, nil
}
