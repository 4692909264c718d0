package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/logger"
)

// profileStore is the persistence surface the handler needs. Satisfied
// by *sqlite.Client.
type profileStore interface {
	GetStyleProfile(ownerID, platform string) (*models.StyleProfile, error)
	GetProfileHistory(ownerID, platform string, limit int) ([]models.StyleProfileSnapshot, error)
	PurgeOwner(ownerID string) error
}

type ProfileHandler struct {
	store profileStore
}

func NewProfileHandler(store profileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	platform := c.Query("platform")
	if userID == "" || platform == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and platform are required",
		})
	}

	profile, err := h.store.GetStyleProfile(userID, platform)
	if err != nil {
		logger.Error("Failed to load profile", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No profile exists for this user and platform",
		})
	}

	return c.JSON(fiber.Map{
		"id":         profile.ID,
		"user_id":    profile.OwnerID,
		"platform":   profile.Platform,
		"version":    profile.Version,
		"sections":   profile.Sections,
		"confidence": profile.Confidence,
		"created_at": profile.CreatedAt.Unix(),
		"updated_at": profile.UpdatedAt.Unix(),
	})
}

func (h *ProfileHandler) GetProfileHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	platform := c.Query("platform")
	if userID == "" || platform == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and platform are required",
		})
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	snapshots, err := h.store.GetProfileHistory(userID, platform, limit)
	if err != nil {
		logger.Error("Failed to load profile history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile history",
		})
	}

	history := make([]fiber.Map, 0, len(snapshots))
	for _, s := range snapshots {
		history = append(history, fiber.Map{
			"profile_id":     s.ProfileID,
			"version":        s.Version,
			"sections":       s.Sections,
			"confidence":     s.Confidence,
			"snapshotted_at": s.SnapshottedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"user_id":  userID,
		"platform": platform,
		"history":  history,
	})
}

// PurgeOwner removes every stored row for one user. This is the single
// data-deletion entry point.
func (h *ProfileHandler) PurgeOwner(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	if err := h.store.PurgeOwner(userID); err != nil {
		logger.Error("Failed to purge owner data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to purge data",
		})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"purged":  true,
	})
}
