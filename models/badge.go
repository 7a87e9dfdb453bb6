package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeType: static config, seeded from BadgeTriggers at startup
type BadgeType struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_JOURNEY", "RANK_LEGEND"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json;type:jsonb" json:"threshold"`     // e.g., {"journeys_completed": 5}
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance, at most one per user and badge
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"external_user_id"`
	BadgeTypeID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_type_id"`
	BadgeType      BadgeType `gorm:"foreignKey:BadgeTypeID" json:"badge_type"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

func (b *UserBadge) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Threshold keys understood by the badge service.
const (
	ThresholdJourneysCompleted  = "journeys_completed"
	ThresholdCheckpointsVisited = "checkpoints_visited"
	ThresholdRankIndex          = "rank_index"
)

// BadgeTriggers are the shipped milestone badges. Rank badges use the rank's
// position in the table so a reconfigured table keeps working.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_JOURNEY",
		Name:        "First Steps",
		Description: "Completed your first journey",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdJourneysCompleted: 1},
	},
	{
		Code:        "FIVE_JOURNEYS",
		Name:        "Seasoned Traveller",
		Description: "Completed five journeys",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdJourneysCompleted: 5},
	},
	{
		Code:        "CHECKPOINTS_25",
		Name:        "Waypoint Hunter",
		Description: "Visited 25 checkpoints",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdCheckpointsVisited: 25},
	},
	{
		Code:        "RANK_2",
		Name:        "Moving Up",
		Description: "Reached the second rank",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdRankIndex: 1},
	},
	{
		Code:        "RANK_4",
		Name:        "Halfway to Legend",
		Description: "Reached the fourth rank",
		Rarity:      "epic",
		Threshold:   map[string]int64{ThresholdRankIndex: 3},
	},
	{
		Code:        "RANK_5",
		Name:        "Living Legend",
		Description: "Reached the fifth rank",
		Rarity:      "legendary",
		Threshold:   map[string]int64{ThresholdRankIndex: 4},
	},
}
