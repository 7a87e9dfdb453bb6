package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-progression/models"
	"journey-progression/progression"
	"journey-progression/services"
)

type fakeProgression struct {
	ranks  *progression.RankTable
	xp     map[string]int64
	grants []string
	err    error
}

func newFakeProgression() *fakeProgression {
	return &fakeProgression{ranks: progression.DefaultRankTable(), xp: map[string]int64{}}
}

func (f *fakeProgression) RankTable() []progression.Rank { return f.ranks.Ranks() }

func (f *fakeProgression) EnsureProfile(_ context.Context, userID, name string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.UserProfile{ExternalUserID: userID, Name: name, TotalXP: f.xp[userID]}, nil
}

func (f *fakeProgression) GetProgress(_ context.Context, userID string) (*services.ProgressSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ProgressSummary{UserID: userID, Progress: f.ranks.Progress(f.xp[userID])}, nil
}

func (f *fakeProgression) GetUserHistory(_ context.Context, _ string, page, size int) (*services.HistoryPage, error) {
	return &services.HistoryPage{Page: page, Size: size}, f.err
}

func (f *fakeProgression) GainXP(_ context.Context, userID string, amount int64, reason string) (*services.GrantOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.xp[userID] += amount
	f.grants = append(f.grants, reason)
	return &services.GrantOutcome{Progress: f.ranks.Progress(f.xp[userID])}, nil
}

func (f *fakeProgression) ListJourneys(_ context.Context, _, query string) ([]services.JourneySummary, error) {
	all := []services.JourneySummary{{Slug: "the-breeze", Title: "The Breeze"}, {Slug: "aeon-mall", Title: "AEON Mall"}}
	var out []services.JourneySummary
	for _, j := range all {
		if services.MatchJourney(query, j.Title) {
			out = append(out, j)
		}
	}
	return out, f.err
}

func (f *fakeProgression) GetJourney(_ context.Context, _, idOrSlug string) (*services.JourneyDetail, error) {
	if idOrSlug != "the-breeze" {
		return nil, fmt.Errorf("%w: %s", progression.ErrUnknownJourney, idOrSlug)
	}
	return &services.JourneyDetail{JourneySummary: services.JourneySummary{Slug: idOrSlug}}, nil
}

func (f *fakeProgression) VisitCheckpoint(_ context.Context, _, journeyID, checkpointID string) (*services.VisitOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if checkpointID == "missing" {
		return nil, fmt.Errorf("%w: %s", progression.ErrUnknownCheckpoint, checkpointID)
	}
	out := &services.VisitOutcome{}
	out.CheckpointNewlyVisited = checkpointID != "again"
	out.Journey.ID = journeyID
	return out, nil
}

type fakeBadges struct{}

func (fakeBadges) ListUserBadges(context.Context, string) ([]models.UserBadge, error) {
	return []models.UserBadge{{ID: "b-1", BadgeType: models.BadgeType{Code: "FIRST_JOURNEY"}}}, nil
}

type fakeCatalog struct{ calls int }

func (f *fakeCatalog) Sync(context.Context) (services.SyncReport, error) {
	f.calls++
	return services.SyncReport{Source: "embedded", Unchanged: 5}, nil
}

func newTestApp(p *fakeProgression, cat *fakeCatalog) *fiber.App {
	app := fiber.New()
	SetupProgressionRoutes(app, p, fakeBadges{})
	SetupJourneyRoutes(app, p)
	SetupAdminRoutes(app, p, cat)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body, roles string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestRanksRoute(t *testing.T) {
	app := newTestApp(newFakeProgression(), &fakeCatalog{})
	status, body := do(t, app, "GET", "/ranks", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["ranks"], 5)
}

func TestProgressRoute(t *testing.T) {
	p := newFakeProgression()
	p.xp["user-1"] = 150
	app := newTestApp(p, &fakeCatalog{})

	status, body := do(t, app, "GET", "/user/progress", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-1", body["user_id"])
	assert.EqualValues(t, 150, body["total_xp"])
	assert.InDelta(t, 50.0/150.0, body["fraction_complete"], 1e-9)
}

func TestProfileRoute_Validation(t *testing.T) {
	app := newTestApp(newFakeProgression(), &fakeCatalog{})

	status, _ := do(t, app, "POST", "/user/profile", `{"name":"`+strings.Repeat("x", 121)+`"}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := do(t, app, "POST", "/user/profile", `{"name":"Ayu"}`, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ayu", body["name"])
}

func TestErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"invalid":     {fmt.Errorf("%w: bad", progression.ErrInvalidArgument), fiber.StatusBadRequest},
		"persistence": {fmt.Errorf("%w: db down", progression.ErrPersistence), fiber.StatusServiceUnavailable},
		"other":       {errors.New("boom"), fiber.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newFakeProgression()
			p.err = tc.err
			app := newTestApp(p, &fakeCatalog{})

			status, body := do(t, app, "GET", "/user/progress", "", "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, "failed to get progress", body["error"])
			assert.Equal(t, tc.err.Error(), body["cause"])
		})
	}
}

func TestJourneyRoutes(t *testing.T) {
	app := newTestApp(newFakeProgression(), &fakeCatalog{})

	status, body := do(t, app, "GET", "/journeys?q=breeze", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["journeys"], 1)

	status, _ = do(t, app, "GET", "/journeys/the-breeze", "", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "GET", "/journeys/nowhere", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestVisitRoute(t *testing.T) {
	app := newTestApp(newFakeProgression(), &fakeCatalog{})

	status, _ := do(t, app, "POST", "/journeys/j-1/checkpoints/cp-1/visit", "", "")
	assert.Equal(t, fiber.StatusCreated, status)

	status, _ = do(t, app, "POST", "/journeys/j-1/checkpoints/again/visit", "", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "POST", "/journeys/j-1/checkpoints/missing/visit", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminRoutes(t *testing.T) {
	p := newFakeProgression()
	cat := &fakeCatalog{}
	app := newTestApp(p, cat)

	status, _ := do(t, app, "POST", "/s/admin/xp/grant", `{"user_id":"user-2","xp":50}`, "player")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = do(t, app, "POST", "/s/admin/xp/grant", `{"user_id":"user-2","xp":0}`, "admin")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := do(t, app, "POST", "/s/admin/xp/grant", `{"user_id":"user-2","xp":50,"reason":"event"}`, "admin")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-2", body["user_id"])
	assert.Equal(t, int64(50), p.xp["user-2"])
	assert.Equal(t, []string{"event"}, p.grants)

	status, body = do(t, app, "POST", "/s/admin/catalog/sync", "", "admin")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 5, body["unchanged"])
	assert.Equal(t, 1, cat.calls)
}
