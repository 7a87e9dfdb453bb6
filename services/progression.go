package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journey-progression/metrics"
	"journey-progression/models"
	"journey-progression/progression"
	"journey-progression/utils"
)

// ProgressSummary is what the profile screen shows.
type ProgressSummary struct {
	UserID             string     `json:"user_id"`
	Name               string     `json:"name"`
	JourneysCompleted  int64      `json:"journeys_completed"`
	CheckpointsVisited int64      `json:"checkpoints_visited"`
	LastRankUpAt       *time.Time `json:"last_rank_up_at,omitempty"`
	progression.Progress
}

// JourneySummary is a journey plus one user's progress on it.
type JourneySummary struct {
	ID                 string                   `json:"id"`
	Slug               string                   `json:"slug"`
	Title              string                   `json:"title"`
	Description        string                   `json:"description"`
	XPReward           int64                    `json:"xp_reward"`
	TotalCheckpoints   int                      `json:"total_checkpoints"`
	VisitedCheckpoints int                      `json:"visited_checkpoints"`
	FractionComplete   float64                  `json:"fraction_complete"`
	State              progression.JourneyState `json:"state"`
}

type JourneyDetail struct {
	JourneySummary
	Checkpoints    []progression.Checkpoint `json:"checkpoints"`
	NextCheckpoint *progression.Checkpoint  `json:"next_checkpoint,omitempty"`
	Route          []progression.Coordinate `json:"route"`
}

// VisitOutcome is returned by VisitCheckpoint.
type VisitOutcome struct {
	progression.VisitResult
	Journey       JourneySummary       `json:"journey"`
	Progress      progression.Progress `json:"progress"`
	BadgesAwarded []string             `json:"badges_awarded,omitempty"`
}

// GrantOutcome is returned by GainXP.
type GrantOutcome struct {
	progression.XPGain
	Progress      progression.Progress `json:"progress"`
	BadgesAwarded []string             `json:"badges_awarded,omitempty"`
}

type HistoryPage struct {
	Grants     []models.XPGrant `json:"grants"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalItems int64            `json:"total_items"`
	TotalPages int              `json:"total_pages"`
}

type ProgressionService struct {
	DB              *gorm.DB
	Ranks           *progression.RankTable
	XPPerCheckpoint int64
	Badges          *BadgeService

	tracker *progression.Tracker
}

func NewProgressionService(db *gorm.DB, ranks *progression.RankTable, xpPerCheckpoint int64, badges *BadgeService) *ProgressionService {
	return &ProgressionService{
		DB:              db,
		Ranks:           ranks,
		XPPerCheckpoint: xpPerCheckpoint,
		Badges:          badges,
		tracker:         progression.NewTracker(),
	}
}

func (s *ProgressionService) RankTable() []progression.Rank {
	return s.Ranks.Ranks()
}

// EnsureProfile returns the user's profile, creating it with 0 XP if needed.
// A non-empty name replaces the stored display name.
func (s *ProgressionService) EnsureProfile(ctx context.Context, externalUserID, name string) (*models.UserProfile, error) {
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: user id is required", progression.ErrInvalidArgument)
	}
	var prof *models.UserProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProfile(tx, externalUserID)
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name != "" && name != p.Name {
			if err := tx.Model(p).Update("name", name).Error; err != nil {
				return err
			}
			p.Name = name
		}
		prof = p
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return prof, nil
}

// ImportProfile creates a profile seeded with importedXP, or refreshes the
// name of an existing one. Imported XP never touches an existing ledger.
func (s *ProgressionService) ImportProfile(ctx context.Context, externalUserID, name string, importedXP int64) (bool, error) {
	if _, err := progression.NewLedger(externalUserID, importedXP, s.Ranks, nil); err != nil {
		return false, err
	}
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserProfile
		err := tx.Where("external_user_id = ?", externalUserID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prof := models.UserProfile{
				ID:             uuid.NewString(),
				ExternalUserID: externalUserID,
				Name:           name,
				TotalXP:        importedXP,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&prof)
			if res.Error != nil {
				return res.Error
			}
			created = res.RowsAffected == 1
			return nil
		}
		if err != nil {
			return err
		}
		if name != "" && name != existing.Name {
			return tx.Model(&existing).Update("name", name).Error
		}
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}
	return created, nil
}

// GetProgress derives the user's rank and progress from the stored total.
func (s *ProgressionService) GetProgress(ctx context.Context, externalUserID string) (*ProgressSummary, error) {
	prof, err := s.EnsureProfile(ctx, externalUserID, "")
	if err != nil {
		return nil, err
	}
	return &ProgressSummary{
		UserID:             prof.ExternalUserID,
		Name:               prof.Name,
		JourneysCompleted:  prof.JourneysCompleted,
		CheckpointsVisited: prof.CheckpointsVisited,
		LastRankUpAt:       prof.LastRankUpAt,
		Progress:           s.Ranks.Progress(prof.TotalXP),
	}, nil
}

// GainXP applies a manual grant through the ledger.
func (s *ProgressionService) GainXP(ctx context.Context, externalUserID string, amount int64, reason string) (*GrantOutcome, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: XP amount must be positive, got %d", progression.ErrInvalidArgument, amount)
	}
	if reason == "" {
		reason = "manual_grant"
	}

	var out GrantOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.lockProfile(tx, externalUserID)
		if err != nil {
			return err
		}
		ledger, err := progression.NewLedger(externalUserID, prof.TotalXP, s.Ranks, s.ledgerSaver(tx, prof, nil))
		if err != nil {
			return err
		}
		gain, err := ledger.GainXP(ctx, amount, reason)
		if err != nil {
			return err
		}
		badges, err := s.Badges.AutoAwardBadges(tx, prof, ledger.Rank())
		if err != nil {
			return err
		}
		out = GrantOutcome{XPGain: gain, Progress: ledger.Progress(), BadgesAwarded: badges}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}

	metrics.ObserveGain("manual_grant", out.Amount, out.RankChanged, string(out.NewRank.Name))
	utils.Logger.Info("🎮 XP awarded",
		zap.String("user_id", externalUserID),
		zap.Int64("amount", out.Amount),
		zap.Int64("total_xp", out.NewCumulativeXP),
		zap.String("rank", string(out.NewRank.Name)),
		zap.String("reason", reason),
	)
	return &out, nil
}

// VisitCheckpoint records a checkpoint visit for the user and, on the visit
// that completes the journey, pays the journey reward exactly once. Profile,
// journey progress, visit row, XP history and badges commit together. The
// journey may be named by id or slug, as on GET /journeys/:id.
func (s *ProgressionService) VisitCheckpoint(ctx context.Context, externalUserID, journeyIDOrSlug, checkpointID string) (*VisitOutcome, error) {
	var out VisitOutcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prof, err := s.lockProfile(tx, externalUserID)
		if err != nil {
			return err
		}
		row, err := loadJourney(tx, journeyIDOrSlug)
		if err != nil {
			return err
		}
		progressRow, isNew, err := loadJourneyProgress(tx, externalUserID, row.ID)
		if err != nil {
			return err
		}
		j, err := s.restoreJourney(tx, row, progressRow)
		if err != nil {
			return err
		}

		ledger, err := progression.NewLedger(externalUserID, prof.TotalXP, s.Ranks, s.ledgerSaver(tx, prof, &row.ID))
		if err != nil {
			return err
		}
		res, err := s.tracker.VisitCheckpoint(ctx, j, checkpointID, ledger)
		if err != nil {
			return err
		}

		if res.CheckpointNewlyVisited {
			visit := models.CheckpointVisit{
				ExternalUserID: externalUserID,
				JourneyID:      row.ID,
				CheckpointID:   checkpointID,
			}
			if err := tx.Create(&visit).Error; err != nil {
				return fmt.Errorf("record visit: %w", err)
			}

			counters := map[string]any{"checkpoints_visited": gorm.Expr("checkpoints_visited + 1")}
			prof.CheckpointsVisited++
			progressRow.Status = res.State
			if res.JourneyJustCompleted {
				now := time.Now().UTC()
				progressRow.CompletedAt = &now
				counters["journeys_completed"] = gorm.Expr("journeys_completed + 1")
				prof.JourneysCompleted++
			}
			if err := tx.Model(&models.UserProfile{}).Where("id = ?", prof.ID).Updates(counters).Error; err != nil {
				return fmt.Errorf("update counters: %w", err)
			}
			if isNew {
				err = tx.Create(progressRow).Error
			} else {
				err = tx.Save(progressRow).Error
			}
			if err != nil {
				return fmt.Errorf("save journey progress: %w", err)
			}

			badges, err := s.Badges.AutoAwardBadges(tx, prof, ledger.Rank())
			if err != nil {
				return err
			}
			out.BadgesAwarded = badges
		}

		out.VisitResult = res
		out.Journey = summarize(row, j)
		out.Progress = ledger.Progress()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, progression.ErrInvalidArgument):
			metrics.CheckpointVisits.WithLabelValues("unknown").Inc()
		default:
			metrics.CheckpointVisits.WithLabelValues("error").Inc()
		}
		return nil, storeErr(err)
	}

	if !out.CheckpointNewlyVisited {
		metrics.CheckpointVisits.WithLabelValues("repeat").Inc()
		return &out, nil
	}
	metrics.CheckpointVisits.WithLabelValues("new").Inc()
	if out.JourneyJustCompleted && out.XPGain != nil {
		metrics.JourneyCompletions.Inc()
		metrics.ObserveGain("journey_completed", out.XPGain.Amount, out.XPGain.RankChanged, string(out.XPGain.NewRank.Name))
		utils.Logger.Info("🏁 journey completed",
			zap.String("user_id", externalUserID),
			zap.String("journey", out.Journey.Slug),
			zap.Int64("xp_reward", out.XPGain.Amount),
			zap.Bool("rank_changed", out.XPGain.RankChanged),
		)
	}
	return &out, nil
}

// ListJourneys returns catalog journeys matching query, with the user's
// progress when userID is set.
func (s *ProgressionService) ListJourneys(ctx context.Context, externalUserID, query string) ([]JourneySummary, error) {
	db := s.DB.WithContext(ctx)

	var rows []models.Journey
	if err := db.Preload("Checkpoints", orderByPosition).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, storeErr(err)
	}

	status := map[string]progression.JourneyState{}
	visits := map[string][]string{}
	if externalUserID != "" {
		var progressRows []models.JourneyProgress
		if err := db.Where("external_user_id = ?", externalUserID).Find(&progressRows).Error; err != nil {
			return nil, storeErr(err)
		}
		for _, p := range progressRows {
			status[p.JourneyID] = p.Status
		}
		var visitRows []models.CheckpointVisit
		if err := db.Where("external_user_id = ?", externalUserID).Find(&visitRows).Error; err != nil {
			return nil, storeErr(err)
		}
		for _, v := range visitRows {
			visits[v.JourneyID] = append(visits[v.JourneyID], v.CheckpointID)
		}
	}

	out := make([]JourneySummary, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if !MatchJourney(query, row.Title, row.Description) {
			continue
		}
		j, err := progression.RestoreJourney(journeyDefinition(row), row.XPReward, visits[row.ID], status[row.ID] == progression.JourneyCompleted)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(row, j))
	}
	return out, nil
}

// GetJourney looks a journey up by id or slug and returns its checkpoints with
// the user's visited flags.
func (s *ProgressionService) GetJourney(ctx context.Context, externalUserID, idOrSlug string) (*JourneyDetail, error) {
	db := s.DB.WithContext(ctx)
	row, err := loadJourney(db, idOrSlug)
	if err != nil {
		return nil, storeErr(err)
	}

	progressRow := &models.JourneyProgress{Status: progression.JourneyNotStarted}
	if externalUserID != "" {
		if progressRow, _, err = loadJourneyProgress(db, externalUserID, row.ID); err != nil {
			return nil, storeErr(err)
		}
	}
	j, err := s.restoreJourney(db, row, progressRow)
	if err != nil {
		return nil, storeErr(err)
	}

	detail := &JourneyDetail{
		JourneySummary: summarize(row, j),
		Checkpoints:    j.Checkpoints(),
		Route:          j.RouteCoordinates(),
	}
	if next, ok := j.NextCheckpoint(); ok {
		detail.NextCheckpoint = &next
	}
	return detail, nil
}

// GetUserHistory returns the user's XP grants, newest first.
func (s *ProgressionService) GetUserHistory(ctx context.Context, externalUserID string, page, size int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.XPGrant{}).Where("external_user_id = ?", externalUserID).Count(&total).Error; err != nil {
		return nil, storeErr(err)
	}
	var grants []models.XPGrant
	if err := db.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&grants).Error; err != nil {
		return nil, storeErr(err)
	}

	return &HistoryPage{
		Grants:     grants,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// lockProfile loads the profile row FOR UPDATE, creating it first if missing.
// Holding the row lock serializes every writer for this user.
func (s *ProgressionService) lockProfile(tx *gorm.DB, externalUserID string) (*models.UserProfile, error) {
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: user id is required", progression.ErrInvalidArgument)
	}
	var prof models.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&prof).Error
	if err == nil {
		return &prof, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.UserProfile{ID: uuid.NewString(), ExternalUserID: externalUserID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&prof).Error; err != nil {
		return nil, err
	}
	utils.Logger.Info("👤 profile created", zap.String("user_id", externalUserID))
	return &prof, nil
}

// ledgerSaver persists ledger gains through tx and keeps prof in step.
func (s *ProgressionService) ledgerSaver(tx *gorm.DB, prof *models.UserProfile, journeyID *string) progression.ProfileSaver {
	return progression.ProfileSaverFunc(func(ctx context.Context, snap progression.LedgerSnapshot) error {
		updates := map[string]any{"total_xp": snap.TotalXP}
		var rankUpAt *time.Time
		if snap.RankChanged {
			now := time.Now().UTC()
			rankUpAt = &now
			updates["last_rank_up_at"] = now
		}
		if err := tx.WithContext(ctx).Model(&models.UserProfile{}).Where("id = ?", prof.ID).Updates(updates).Error; err != nil {
			return err
		}
		grant := models.XPGrant{
			ExternalUserID: snap.UserID,
			Amount:         snap.Amount,
			Reason:         snap.Reason,
			JourneyID:      journeyID,
			TotalAfter:     snap.TotalXP,
			RankBefore:     string(snap.PreviousRank.Name),
			RankAfter:      string(snap.NewRank.Name),
		}
		if err := tx.WithContext(ctx).Create(&grant).Error; err != nil {
			return err
		}
		prof.TotalXP = snap.TotalXP
		if rankUpAt != nil {
			prof.LastRankUpAt = rankUpAt
		}
		return nil
	})
}

func (s *ProgressionService) restoreJourney(db *gorm.DB, row *models.Journey, progressRow *models.JourneyProgress) (*progression.Journey, error) {
	var visited []string
	if progressRow.ExternalUserID != "" {
		if err := db.Model(&models.CheckpointVisit{}).
			Where("external_user_id = ? AND journey_id = ?", progressRow.ExternalUserID, row.ID).
			Pluck("checkpoint_id", &visited).Error; err != nil {
			return nil, err
		}
	}
	return progression.RestoreJourney(journeyDefinition(row), row.XPReward, visited, progressRow.Status == progression.JourneyCompleted)
}

func loadJourney(db *gorm.DB, idOrSlug string) (*models.Journey, error) {
	q := db.Preload("Checkpoints", orderByPosition)
	if _, err := uuid.Parse(idOrSlug); err == nil {
		q = q.Where("id = ?", idOrSlug)
	} else {
		q = q.Where("slug = ?", idOrSlug)
	}
	var row models.Journey
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", progression.ErrUnknownJourney, idOrSlug)
		}
		return nil, err
	}
	return &row, nil
}

// loadJourneyProgress returns the stored row, or a fresh unsaved one.
func loadJourneyProgress(db *gorm.DB, externalUserID, journeyID string) (*models.JourneyProgress, bool, error) {
	var row models.JourneyProgress
	err := db.Where("external_user_id = ? AND journey_id = ?", externalUserID, journeyID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.JourneyProgress{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			JourneyID:      journeyID,
			Status:         progression.JourneyNotStarted,
		}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &row, false, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func summarize(row *models.Journey, j *progression.Journey) JourneySummary {
	return JourneySummary{
		ID:                 row.ID,
		Slug:               row.Slug,
		Title:              j.Title(),
		Description:        j.Description(),
		XPReward:           j.Reward(),
		TotalCheckpoints:   j.Total(),
		VisitedCheckpoints: j.VisitedCount(),
		FractionComplete:   j.Fraction(),
		State:              j.State(),
	}
}

// storeErr leaves engine errors alone and marks everything else as a
// persistence failure so callers can tell "retry" from "fix your request".
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, progression.ErrInvalidArgument) || errors.Is(err, progression.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", progression.ErrPersistence, err)
}
