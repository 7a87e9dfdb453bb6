package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPGrant is one applied ledger gain, kept for the user's history.
type XPGrant struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Amount         int64     `gorm:"not null;check:amount > 0" json:"amount"`
	Reason         string    `gorm:"size:255" json:"reason"`
	JourneyID      *string   `gorm:"type:uuid;index" json:"journey_id,omitempty"` // nil = manual grant
	TotalAfter     int64     `json:"total_after"`
	RankBefore     string    `gorm:"type:varchar(32)" json:"rank_before"`
	RankAfter      string    `gorm:"type:varchar(32)" json:"rank_after"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (g *XPGrant) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
