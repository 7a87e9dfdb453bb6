package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile owns one user's XP ledger row. Rank is derived from TotalXP on
// every read and is deliberately not stored.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service
	Name           string `gorm:"size:120" json:"name"`

	// Lifetime XP; only ever increased by the ledger.
	TotalXP int64 `json:"total_xp" gorm:"not null;default:0;check:total_xp >= 0"`

	// Activity counters
	JourneysCompleted  int64 `json:"journeys_completed" gorm:"default:0"`
	CheckpointsVisited int64 `json:"checkpoints_visited" gorm:"default:0"`

	// Milestones
	LastRankUpAt *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

// BeforeCreate assigns the id in Go so the schema works on any dialect.
func (p *UserProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
