// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"journey-progression/utils"
)

// RemoteProfile is one entry of the profile service's change feed.
type RemoteProfile struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	ImportedXP int64     `json:"imported_xp"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the change feed.
type GetProfileChangesResponse struct {
	Profiles []RemoteProfile `json:"profiles"`
}

// ProfileImporter creates local profiles from remote ones.
type ProfileImporter interface {
	ImportProfile(ctx context.Context, externalUserID, name string, importedXP int64) (bool, error)
}

type ProfileSyncWorker struct {
	importer     ProfileImporter
	interval     time.Duration
	baseURL      string // e.g. "http://localhost:8500"
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	since time.Time
}

func NewProfileSyncWorker(importer ProfileImporter, baseURL, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProfileSyncWorker{
		importer:     importer,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: "/profiles",
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	utils.Logger.Info("🔁 Starting profile sync worker", zap.String("base_url", w.baseURL), zap.Duration("interval", w.interval))
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncBatch(ctx); err != nil {
		utils.Logger.Warn("⚠️ [SYNC] initial profile sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx); err != nil {
				utils.Logger.Error("❌ [SYNC] profile sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			utils.Logger.Info("⏹️ Profile sync worker stopped")
			return
		}
	}
}

// SyncBatch imports every profile changed since the last successful batch
// and returns how many were newly created. The cursor only advances when the
// whole batch succeeds.
func (w *ProfileSyncWorker) SyncBatch(ctx context.Context) (int, error) {
	profiles, err := w.fetchChanges(ctx, w.since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		utils.Logger.Debug("✅ [SYNC] no profile changes", zap.Time("since", w.since))
		return 0, nil
	}

	var created, failed int
	latest := w.since
	for _, p := range profiles {
		if p.ExternalID == "" {
			continue
		}
		isNew, err := w.importer.ImportProfile(ctx, p.ExternalID, p.Name, p.ImportedXP)
		if err != nil {
			failed++
			utils.Logger.Warn("⚠️ [SYNC] failed to import profile",
				zap.String("external_id", p.ExternalID), zap.Error(err))
			continue
		}
		if isNew {
			created++
		}
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}

	if failed == 0 {
		w.since = latest
	}
	utils.Logger.Info("✅ [SYNC] profiles synced",
		zap.Int("received", len(profiles)),
		zap.Int("created", created),
		zap.Int("errors", failed),
		zap.Time("cursor", w.since),
	)
	if failed > 0 {
		return created, fmt.Errorf("%d of %d profiles failed to import", failed, len(profiles))
	}
	return created, nil
}

func (w *ProfileSyncWorker) fetchChanges(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	return response.Profiles, nil
}
