package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"journey-progression/progression"
)

// JourneyProgress is one user's traversal of one journey.
// Status moves forward only; completed is terminal.
type JourneyProgress struct {
	ID             string                   `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string                   `gorm:"not null;uniqueIndex:idx_progress_user_journey,priority:1" json:"external_user_id"`
	JourneyID      string                   `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_journey,priority:2" json:"journey_id"`
	Status         progression.JourneyState `gorm:"type:varchar(16);not null;default:'not_started'" json:"status"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`

	Timestamps
}

// CheckpointVisit records that a user reached a checkpoint. One row per user and checkpoint.
type CheckpointVisit struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_visit_user_checkpoint,priority:1" json:"external_user_id"`
	JourneyID      string    `gorm:"type:uuid;index;not null" json:"journey_id"`
	CheckpointID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_visit_user_checkpoint,priority:2" json:"checkpoint_id"`
	VisitedAt      time.Time `gorm:"autoCreateTime" json:"visited_at"`
}

func (p *JourneyProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (v *CheckpointVisit) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
