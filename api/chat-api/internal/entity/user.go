// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	gorm_model "github.com/acasochat/acaso/pkg/models/gorm"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/acasochat/acaso/pkg/utils"
)

type User struct {
	gorm_model.Audited
	Email          string `json:"email" gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash   string `json:"-" gorm:"column:password_hash;type:varchar(100);not null"`
	Username       string `json:"username" gorm:"type:varchar(100);not null;default:''"`
	Country        string `json:"country,omitempty" gorm:"type:varchar(64);not null;default:''"`
	EmailConfirmed bool   `json:"-" gorm:"column:email_confirmed;not null;default:false"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email local part, then to "User".
func (u *User) DisplayName() string {
	if !utils.IsEmpty(u.Username) {
		return u.Username
	}
	if prefix := utils.EmailPrefix(u.Email); prefix != "" {
		return prefix
	}
	return "User"
}

func (u *User) ToPrinciple() *types.UserPrinciple {
	return &types.UserPrinciple{
		UserId:   u.Id,
		Email:    u.Email,
		Username: u.DisplayName(),
		Country:  u.Country,
	}
}

// CREATE TABLE users (
//     id VARCHAR(36) PRIMARY KEY,
//     created_date TIMESTAMP NOT NULL,
//     updated_date TIMESTAMP,
//     email VARCHAR(320) NOT NULL UNIQUE,
//     password_hash VARCHAR(100) NOT NULL,
//     username VARCHAR(100) NOT NULL DEFAULT '',
//     country VARCHAR(64) NOT NULL DEFAULT '',
//     email_confirmed BOOLEAN NOT NULL DEFAULT FALSE
// );
