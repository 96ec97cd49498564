// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package gorm_model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audited is embedded by every entity that owns its identifier.
type Audited struct {
	Id          string    `json:"id" gorm:"type:varchar(36);primaryKey;<-:create"`
	CreatedDate time.Time `json:"createdDate" gorm:"not null;<-:create"`
	UpdatedDate time.Time `json:"updatedDate"`
}

func (a *Audited) BeforeCreate(tx *gorm.DB) error {
	if a.Id == "" {
		a.Id = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedDate.IsZero() {
		a.CreatedDate = now
	}
	if a.UpdatedDate.IsZero() {
		a.UpdatedDate = now
	}
	return nil
}

func (a *Audited) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedDate = time.Now()
	return nil
}
