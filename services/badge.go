package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journey-progression/models"
	"journey-progression/progression"
	"journey-progression/utils"
)

// badgeNamespace keeps badge type ids stable across restarts and replicas.
var badgeNamespace = uuid.MustParse("6f1c7a52-8d3e-4a0b-9b7e-2f5d1c0e9a41")

// BadgeTypeID derives the id of a badge type from its code.
func BadgeTypeID(code string) string {
	return uuid.NewSHA1(badgeNamespace, []byte(code)).String()
}

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes upserts BadgeTriggers by code.
func (s *BadgeService) SeedBadgeTypes(ctx context.Context) error {
	types := make([]models.BadgeType, len(models.BadgeTriggers))
	for i, trigger := range models.BadgeTriggers {
		trigger.ID = BadgeTypeID(trigger.Code)
		types[i] = trigger
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity", "threshold"}),
	}).Create(&types).Error
}

// AutoAwardBadges checks all badge triggers for a user after a progress update.
// It runs on the caller's transaction so a failed award rolls back the update.
func (s *BadgeService) AutoAwardBadges(tx *gorm.DB, prog *models.UserProfile, rank progression.Rank) ([]string, error) {
	var owned []string
	if err := tx.Model(&models.UserBadge{}).
		Where("external_user_id = ?", prog.ExternalUserID).
		Pluck("badge_type_id", &owned).Error; err != nil {
		return nil, fmt.Errorf("load badges for %s: %w", prog.ExternalUserID, err)
	}
	have := make(map[string]bool, len(owned))
	for _, id := range owned {
		have[id] = true
	}

	var awarded []string
	for _, trigger := range models.BadgeTriggers {
		id := BadgeTypeID(trigger.Code)
		if have[id] || !MeetsThreshold(prog, rank, trigger.Threshold) {
			continue
		}
		userBadge := models.UserBadge{
			ExternalUserID: prog.ExternalUserID,
			BadgeTypeID:    id,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&userBadge)
		if res.Error != nil {
			return nil, fmt.Errorf("award badge %s to %s: %w", trigger.Code, prog.ExternalUserID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		awarded = append(awarded, trigger.Code)
		utils.Logger.Info("🎖️ badge awarded", zap.String("badge", trigger.Name), zap.String("user_id", prog.ExternalUserID))
	}
	return awarded, nil
}

// ListUserBadges returns a user's badges, newest first.
func (s *BadgeService) ListUserBadges(ctx context.Context, externalUserID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.WithContext(ctx).
		Preload("BadgeType").
		Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&badges).Error
	return badges, err
}

// MeetsThreshold reports whether every requirement in req is satisfied.
func MeetsThreshold(prog *models.UserProfile, rank progression.Rank, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		switch key {
		case models.ThresholdJourneysCompleted:
			if prog.JourneysCompleted < required {
				return false
			}
		case models.ThresholdCheckpointsVisited:
			if prog.CheckpointsVisited < required {
				return false
			}
		case models.ThresholdRankIndex:
			if int64(rank.Index) < required {
				return false
			}
		default:
			return false
		}
	}
	return true
}
