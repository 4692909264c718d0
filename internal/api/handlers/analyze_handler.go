package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/pipeline"
	"github.com/creatorpulse/backend/internal/scraper"
	"github.com/creatorpulse/backend/pkg/logger"
)

// analyzer is the pipeline surface the handler needs. Satisfied by
// *pipeline.Orchestrator.
type analyzer interface {
	Run(ctx context.Context, req *pipeline.AnalyzeRequest) (*pipeline.AnalyzeResult, error)
}

type AnalyzeHandler struct {
	pipeline     analyzer
	defaultLimit int
}

func NewAnalyzeHandler(pipeline analyzer, defaultLimit int) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline:     pipeline,
		defaultLimit: defaultLimit,
	}
}

// HandleAnalyze runs one synchronous analysis pass and returns the
// per-platform outcome. Per-platform failures come back inside the
// result body, never as an HTTP error.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		UserID  string `json:"user_id"`
		Targets []struct {
			Platform string `json:"platform"`
			Handle   string `json:"handle"`
		} `json:"targets"`
		Limit int `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Limit == 0 {
		req.Limit = h.defaultLimit
	}

	targets := make([]scraper.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, scraper.Target{Platform: t.Platform, Handle: t.Handle})
	}

	result, err := h.pipeline.Run(c.Context(), &pipeline.AnalyzeRequest{
		OwnerID: req.UserID,
		Targets: targets,
		Limit:   req.Limit,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"run_id":        result.RunID,
		"scraped":       result.Scraped,
		"style_profile": result.StyleProfile,
	})
}
