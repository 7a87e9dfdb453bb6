// services/catalog.go
package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"journey-progression/metrics"
	"journey-progression/models"
	"journey-progression/progression"
	"journey-progression/utils"
)

//go:embed seed/journeys.json
var seedCatalog []byte

// CatalogDocument is the versioned journey catalog format.
type CatalogDocument struct {
	Version  int              `json:"version" validate:"min=1"`
	Journeys []CatalogJourney `json:"journeys" validate:"required,dive"`
}

type CatalogJourney struct {
	Slug        string              `json:"slug,omitempty" validate:"omitempty,max=120"`
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=2000"`
	Checkpoints []CatalogCheckpoint `json:"checkpoints" validate:"required,min=1,dive"`
}

type CatalogCheckpoint struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
}

// SlugOrDefault is the explicit slug or one derived from the title.
func (c CatalogJourney) SlugOrDefault() string {
	if c.Slug != "" {
		return slug.Make(c.Slug)
	}
	return slug.Make(c.Title)
}

var catalogValidate = validator.New()

// ParseCatalog decodes and validates a catalog document. Slugs must be unique.
func ParseCatalog(data []byte) ([]CatalogJourney, error) {
	var doc CatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := catalogValidate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	seen := make(map[string]bool, len(doc.Journeys))
	for _, j := range doc.Journeys {
		s := j.SlugOrDefault()
		if s == "" {
			return nil, fmt.Errorf("invalid catalog: journey %q has an empty slug", j.Title)
		}
		if seen[s] {
			return nil, fmt.Errorf("invalid catalog: duplicate journey slug %q", s)
		}
		seen[s] = true
	}
	return doc.Journeys, nil
}

// CatalogSource fetches the raw catalog document.
type CatalogSource interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

type embeddedSource struct{}

func (embeddedSource) Name() string { return "embedded" }

func (embeddedSource) Fetch(context.Context) ([]byte, error) { return seedCatalog, nil }

type fileSource struct{ path string }

func (f fileSource) Name() string { return "file:" + f.path }

func (f fileSource) Fetch(context.Context) ([]byte, error) { return os.ReadFile(f.path) }

type r2Source struct {
	client      *utils.R2Client
	bucket, key string
}

func (r r2Source) Name() string { return "r2:" + r.bucket + "/" + r.key }

func (r r2Source) Fetch(ctx context.Context) ([]byte, error) {
	return r.client.GetObject(ctx, r.bucket, r.key)
}

// EmbeddedCatalog serves the sample journeys compiled into the binary.
func EmbeddedCatalog() CatalogSource { return embeddedSource{} }

func FileCatalog(path string) CatalogSource { return fileSource{path: path} }

func R2Catalog(c *utils.R2Client, bucket, key string) CatalogSource {
	return r2Source{client: c, bucket: bucket, key: key}
}

// SyncReport summarizes one catalog sync.
type SyncReport struct {
	Source    string `json:"source"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
}

type CatalogService struct {
	DB              *gorm.DB
	Source          CatalogSource
	XPPerCheckpoint int64
}

func NewCatalogService(db *gorm.DB, source CatalogSource, xpPerCheckpoint int64) *CatalogService {
	if source == nil {
		source = EmbeddedCatalog()
	}
	return &CatalogService{DB: db, Source: source, XPPerCheckpoint: xpPerCheckpoint}
}

// LoadJourneys fetches and parses the catalog from the configured source.
func (s *CatalogService) LoadJourneys(ctx context.Context) ([]CatalogJourney, error) {
	data, err := s.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog from %s: %w", s.Source.Name(), err)
	}
	return ParseCatalog(data)
}

// Sync creates journeys missing from the database and refreshes the text of
// existing ones. Checkpoints and the XP reward of an existing journey are
// never touched: the reward is locked when the journey is created.
func (s *CatalogService) Sync(ctx context.Context) (SyncReport, error) {
	report := SyncReport{Source: s.Source.Name()}
	entries, err := s.LoadJourneys(ctx)
	if err != nil {
		metrics.CatalogSyncs.WithLabelValues("error").Inc()
		return report, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			outcome, err := s.syncJourney(tx, entry)
			if err != nil {
				return err
			}
			switch outcome {
			case "created":
				report.Created++
			case "updated":
				report.Updated++
			default:
				report.Unchanged++
			}
		}
		return nil
	})
	if err != nil {
		metrics.CatalogSyncs.WithLabelValues("error").Inc()
		return report, err
	}

	metrics.CatalogSyncs.WithLabelValues("ok").Inc()
	utils.Logger.Info("📚 [CATALOG] sync finished",
		zap.String("source", report.Source),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
	)
	return report, nil
}

func (s *CatalogService) syncJourney(tx *gorm.DB, entry CatalogJourney) (string, error) {
	journeySlug := entry.SlugOrDefault()

	var existing models.Journey
	err := tx.Preload("Checkpoints").Where("slug = ?", journeySlug).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row, err := s.newJourneyRow(journeySlug, entry)
		if err != nil {
			return "", err
		}
		if err := tx.Create(&row).Error; err != nil {
			return "", fmt.Errorf("create journey %s: %w", journeySlug, err)
		}
		utils.Logger.Info("🗺️ [CATALOG] journey created",
			zap.String("slug", journeySlug), zap.Int64("xp_reward", row.XPReward))
		return "created", nil
	}
	if err != nil {
		return "", fmt.Errorf("load journey %s: %w", journeySlug, err)
	}

	if len(existing.Checkpoints) != len(entry.Checkpoints) {
		utils.Logger.Warn("⚠️ [CATALOG] checkpoints changed for existing journey; keeping stored checkpoints and reward",
			zap.String("slug", journeySlug),
			zap.Int("stored", len(existing.Checkpoints)),
			zap.Int("catalog", len(entry.Checkpoints)),
		)
	}

	if existing.Title == entry.Title && existing.Description == entry.Description {
		return "unchanged", nil
	}
	if err := tx.Model(&existing).Updates(map[string]any{
		"title":       entry.Title,
		"description": entry.Description,
	}).Error; err != nil {
		return "", fmt.Errorf("update journey %s: %w", journeySlug, err)
	}
	return "updated", nil
}

// newJourneyRow assigns ids and locks the reward through the engine.
func (s *CatalogService) newJourneyRow(journeySlug string, entry CatalogJourney) (models.Journey, error) {
	row := models.Journey{
		ID:          uuid.NewString(),
		Slug:        journeySlug,
		Title:       entry.Title,
		Description: entry.Description,
		Checkpoints: make([]models.Checkpoint, len(entry.Checkpoints)),
	}
	for i, cp := range entry.Checkpoints {
		row.Checkpoints[i] = models.Checkpoint{
			ID:          uuid.NewString(),
			JourneyID:   row.ID,
			Position:    i,
			Title:       cp.Title,
			Description: cp.Description,
			Latitude:    cp.Latitude,
			Longitude:   cp.Longitude,
		}
	}

	j, err := progression.NewJourney(journeyDefinition(&row), s.XPPerCheckpoint)
	if err != nil {
		return models.Journey{}, fmt.Errorf("journey %s: %w", journeySlug, err)
	}
	row.XPReward = j.Reward()
	return row, nil
}

// journeyDefinition maps a stored journey onto the engine's definition.
// Checkpoints must already be in position order.
func journeyDefinition(row *models.Journey) progression.JourneyDefinition {
	def := progression.JourneyDefinition{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Checkpoints: make([]progression.CheckpointDefinition, len(row.Checkpoints)),
	}
	for i, cp := range row.Checkpoints {
		def.Checkpoints[i] = progression.CheckpointDefinition{
			ID:          cp.ID,
			Title:       cp.Title,
			Description: cp.Description,
			Coordinate:  progression.Coordinate{Latitude: cp.Latitude, Longitude: cp.Longitude},
		}
	}
	return def
}
