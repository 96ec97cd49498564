// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	"time"

	gorm_model "github.com/acasochat/acaso/pkg/models/gorm"
)

type Report struct {
	gorm_model.Audited
	ReporterID     string `json:"reporterId" gorm:"column:reporter_id;type:varchar(36);not null;index"`
	ReportedID     string `json:"reportedId" gorm:"column:reported_id;type:varchar(36);not null;index"`
	ReportedPeerID string `json:"reportedPeerId" gorm:"column:reported_peer_id;type:varchar(64);not null"`
	Reason         string `json:"reason" gorm:"column:reason;type:varchar(32);not null"`
}

func (Report) TableName() string {
	return "reports"
}

// Block hides BlockedUserID from UserID's matches and the other way round.
type Block struct {
	UserID        string    `json:"userId" gorm:"column:user_id;type:varchar(36);primaryKey"`
	BlockedUserID string    `json:"blockedUserId" gorm:"column:blocked_user_id;type:varchar(36);primaryKey"`
	CreatedDate   time.Time `json:"createdDate" gorm:"not null;<-:create"`
}

func (Block) TableName() string {
	return "blocks"
}

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{&User{}, &Presence{}, &Report{}, &Block{}}
}
