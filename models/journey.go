// models/journey.go
package models

// Journey is a catalog entry. XPReward is fixed when the row is created and is
// never recomputed, even if checkpoints change later.
type Journey struct {
	ID          string       `json:"id" gorm:"primaryKey;type:uuid"`
	Slug        string       `json:"slug" gorm:"uniqueIndex;not null"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description"`
	XPReward    int64        `json:"xp_reward" gorm:"not null;check:xp_reward > 0"`
	Checkpoints []Checkpoint `json:"checkpoints" gorm:"foreignKey:JourneyID;constraint:OnDelete:CASCADE"`

	Timestamps
}

// Checkpoint belongs to exactly one journey. Position is the traversal order.
type Checkpoint struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid"`
	JourneyID   string  `json:"journey_id" gorm:"type:uuid;index;not null;uniqueIndex:idx_checkpoint_position,priority:1"`
	Position    int     `json:"position" gorm:"not null;uniqueIndex:idx_checkpoint_position,priority:2"`
	Title       string  `json:"title" gorm:"not null"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}
