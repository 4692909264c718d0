package handlers

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/runstate"
	"github.com/creatorpulse/backend/pkg/logger"
)

// runReader exposes recorded run state. Satisfied by the redis run-state
// client.
type runReader interface {
	GetRun(ctx context.Context, runID string) (map[string]string, error)
}

type ProgressHandler struct {
	runs runReader
}

func NewProgressHandler(runs runReader) *ProgressHandler {
	return &ProgressHandler{runs: runs}
}

const (
	progressPollInterval = time.Second
	progressMaxWatch     = 5 * time.Minute
)

var terminalStages = map[string]bool{
	runstate.StageSkippedNoData:   true,
	runstate.StageSynthesized:     true,
	runstate.StageSynthesisFailed: true,
}

// HandleConnection streams stage transitions for one run until every
// platform reaches a terminal stage or the watch window closes.
func (h *ProgressHandler) HandleConnection(c *websocket.Conn) {
	runID := c.Params("run_id")

	logger.Info("Progress stream opened", zap.String("run_id", runID))

	defer func() {
		c.Close()
		logger.Info("Progress stream closed", zap.String("run_id", runID))
	}()

	if runID == "" {
		h.sendError(c, "run_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), progressMaxWatch)
	defer cancel()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var lastSent string

	for {
		select {
		case <-ctx.Done():
			h.sendError(c, "watch window expired")
			return
		case <-ticker.C:
		}

		fields, err := h.runs.GetRun(ctx, runID)
		if err != nil {
			logger.Warn("Failed to read run state", zap.String("run_id", runID), zap.Error(err))
			continue
		}

		stages := platformStages(fields)
		if len(stages) == 0 {
			continue
		}

		encoded := encodeStages(stages)
		if encoded != lastSent {
			lastSent = encoded
			if err := c.WriteJSON(map[string]interface{}{
				"type":   "state",
				"run_id": runID,
				"stages": stages,
			}); err != nil {
				return
			}
		}

		if allTerminal(stages) {
			c.WriteJSON(map[string]interface{}{
				"type":   "complete",
				"run_id": runID,
				"stages": stages,
			})
			return
		}
	}
}

func (h *ProgressHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

// platformStages filters out the bookkeeping fields, keeping only the
// platform → stage mapping.
func platformStages(fields map[string]string) map[string]string {
	stages := make(map[string]string, len(fields))
	for key, value := range fields {
		if strings.Contains(key, ":") {
			continue
		}
		stages[key] = value
	}
	return stages
}

func allTerminal(stages map[string]string) bool {
	for _, stage := range stages {
		if !terminalStages[stage] {
			return false
		}
	}
	return len(stages) > 0
}

// encodeStages builds an order-insensitive fingerprint so unchanged
// state is not re-sent every poll.
func encodeStages(stages map[string]string) string {
	pairs := make([]string, 0, len(stages))
	for k, v := range stages {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}
