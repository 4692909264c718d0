package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/creatorpulse/backend/internal/storage/models"
)

type fakeProfileStore struct {
	profile  *models.StyleProfile
	history  []models.StyleProfileSnapshot
	purged   []string
	getErr   error
	purgeErr error
}

func (s *fakeProfileStore) GetStyleProfile(ownerID, platform string) (*models.StyleProfile, error) {
	return s.profile, s.getErr
}

func (s *fakeProfileStore) GetProfileHistory(ownerID, platform string, limit int) ([]models.StyleProfileSnapshot, error) {
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func (s *fakeProfileStore) PurgeOwner(ownerID string) error {
	if s.purgeErr != nil {
		return s.purgeErr
	}
	s.purged = append(s.purged, ownerID)
	return nil
}

func newProfileApp(store *fakeProfileStore) *fiber.App {
	app := fiber.New()
	handler := NewProfileHandler(store)
	app.Get("/api/v1/profile", handler.GetProfile)
	app.Get("/api/v1/profile/history", handler.GetProfileHistory)
	app.Delete("/api/v1/owners", handler.PurgeOwner)
	return app
}

func TestGetProfileRequiresParams(t *testing.T) {
	app := newProfileApp(&fakeProfileStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile?user_id=user-1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400 when platform missing", resp.StatusCode)
	}
}

func TestGetProfileMissingIs404(t *testing.T) {
	app := newProfileApp(&fakeProfileStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile?user_id=user-1&platform=instagram", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetProfileReturnsCurrentVersion(t *testing.T) {
	store := &fakeProfileStore{
		profile: &models.StyleProfile{
			ID:       "profile-1",
			OwnerID:  "user-1",
			Platform: models.PlatformInstagram,
			Version:  3,
			Sections: map[string]any{"writing": map[string]any{"tone": "dry"}},
			Confidence: models.ConfidenceScore{
				Overall: 0.62,
			},
			CreatedAt: time.Unix(1700000000, 0),
			UpdatedAt: time.Unix(1700100000, 0),
		},
	}
	app := newProfileApp(store)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile?user_id=user-1&platform=instagram", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if decoded["version"] != float64(3) {
		t.Errorf("version = %v", decoded["version"])
	}
	confidence, _ := decoded["confidence"].(map[string]any)
	if confidence["overall"] != 0.62 {
		t.Errorf("confidence = %v", decoded["confidence"])
	}
}

func TestGetProfileHistoryHonorsLimit(t *testing.T) {
	store := &fakeProfileStore{
		history: []models.StyleProfileSnapshot{
			{ProfileID: "p3", Version: 3},
			{ProfileID: "p2", Version: 2},
			{ProfileID: "p1", Version: 1},
		},
	}
	app := newProfileApp(store)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile/history?user_id=user-1&platform=instagram&limit=2", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	raw, _ := io.ReadAll(resp.Body)
	var decoded struct {
		History []map[string]any `json:"history"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(decoded.History) != 2 {
		t.Errorf("history entries = %d, want 2", len(decoded.History))
	}
}

func TestPurgeOwner(t *testing.T) {
	store := &fakeProfileStore{}
	app := newProfileApp(store)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/owners?user_id=user-1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(store.purged) != 1 || store.purged[0] != "user-1" {
		t.Errorf("purged = %v", store.purged)
	}
}
