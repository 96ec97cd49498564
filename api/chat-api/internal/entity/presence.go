// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import "time"

// Presence status constants.
const (
	StatusWaiting  = "waiting"  // registered and open to random matches
	StatusChatting = "chatting" // in a call, hidden from FindRandomPeer
)

// Presence is one row of the matchmaking registry, keyed by user. A user has
// at most one row; registering again overwrites the peer id.
type Presence struct {
	UserID    string    `json:"userId" gorm:"column:user_id;type:varchar(36);primaryKey"`
	PeerID    string    `json:"peerId" gorm:"column:peer_id;type:varchar(64);not null;index"`
	Status    string    `json:"status" gorm:"column:status;type:varchar(20);not null;default:waiting;index"`
	Country   string    `json:"country,omitempty" gorm:"column:country;type:varchar(64);not null;default:''"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at;not null;index"`
}

func (Presence) TableName() string {
	return "rooms"
}

func ValidStatus(status string) bool {
	return status == StatusWaiting || status == StatusChatting
}
