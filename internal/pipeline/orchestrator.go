package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/confidence"
	"github.com/creatorpulse/backend/internal/insights"
	"github.com/creatorpulse/backend/internal/metrics"
	"github.com/creatorpulse/backend/internal/normalizer"
	"github.com/creatorpulse/backend/internal/runstate"
	"github.com/creatorpulse/backend/internal/scraper"
	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/internal/synthesis"
	"github.com/creatorpulse/backend/pkg/logger"
)

// Store is the persistence surface the pipeline needs. Satisfied by
// *sqlite.Client.
type Store interface {
	SaveRawScrape(rec *models.RawScrapeRecord) error
	BulkUpsertPosts(posts []models.Post) (int, error)
	CountPosts(ownerID, platform string) (int, error)
	GetPosts(ownerID, platform string, limit int) ([]models.Post, error)
	SaveStyleProfile(profile *models.StyleProfile) (*models.StyleProfile, error)
}

// Synthesizer produces profile sections from a corpus. Satisfied by
// *synthesis.Client.
type Synthesizer interface {
	SynthesizeProfile(ctx context.Context, posts []models.Post, corpusInsights insights.CorpusInsights) (*synthesis.Result, error)
}

type Config struct {
	MinPosts        int
	CorpusLimit     int
	PlatformTimeout time.Duration
}

// Orchestrator drives the full analysis run: scrape each requested
// platform, normalize, persist, then synthesize a style profile per
// platform. Platforms run concurrently and fail independently.
type Orchestrator struct {
	store    Store
	synth    Synthesizer
	adapters map[string]scraper.Adapter
	recorder runstate.Recorder
	config   Config
}

func NewOrchestrator(store Store, synth Synthesizer, adapters map[string]scraper.Adapter, recorder runstate.Recorder, config Config) *Orchestrator {
	if recorder == nil {
		recorder = runstate.Nop{}
	}
	if config.MinPosts <= 0 {
		config.MinPosts = 5
	}
	if config.CorpusLimit <= 0 {
		config.CorpusLimit = 50
	}
	if config.PlatformTimeout <= 0 {
		config.PlatformTimeout = 3 * time.Minute
	}
	return &Orchestrator{
		store:    store,
		synth:    synth,
		adapters: adapters,
		recorder: recorder,
		config:   config,
	}
}

type AnalyzeRequest struct {
	OwnerID string
	Targets []scraper.Target
	Limit   int
}

type ScrapeStatus struct {
	TotalPosts int    `json:"total_posts"`
	NewPosts   int    `json:"new_posts"`
	Unparsed   int    `json:"unparsed,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type ProfileStatus struct {
	ID         string  `json:"id"`
	Version    int     `json:"version,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
}

type AnalyzeResult struct {
	RunID        string                   `json:"run_id"`
	Scraped      map[string]ScrapeStatus  `json:"scraped"`
	StyleProfile map[string]ProfileStatus `json:"style_profile"`
}

// validate rejects only malformed input. Provider failures, empty
// corpora and synthesis errors are reported per platform, never as a
// request-level error.
func (o *Orchestrator) validate(req *AnalyzeRequest) error {
	if req.OwnerID == "" {
		return fmt.Errorf("owner id is required")
	}
	if len(req.Targets) == 0 {
		return fmt.Errorf("at least one platform target is required")
	}
	for _, target := range req.Targets {
		if _, ok := o.adapters[target.Platform]; !ok {
			return fmt.Errorf("unsupported platform: %s", target.Platform)
		}
		if target.Handle == "" {
			return fmt.Errorf("handle is required for platform %s", target.Platform)
		}
	}
	return nil
}

// Run executes one analysis request. The returned error is non-nil only
// for malformed requests; everything downstream is reflected in the
// per-platform result maps.
func (o *Orchestrator) Run(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResult, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	logger.Info("Analysis run started",
		zap.String("run_id", runID),
		zap.String("owner_id", req.OwnerID),
		zap.Int("targets", len(req.Targets)),
	)

	result := &AnalyzeResult{
		RunID:        runID,
		Scraped:      make(map[string]ScrapeStatus, len(req.Targets)),
		StyleProfile: make(map[string]ProfileStatus, len(req.Targets)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range req.Targets {
		wg.Add(1)
		go func(target scraper.Target) {
			defer wg.Done()

			platformCtx, cancel := context.WithTimeout(ctx, o.config.PlatformTimeout)
			defer cancel()

			scrape, profile := o.runPlatform(platformCtx, runID, req.OwnerID, target, req.Limit)

			mu.Lock()
			result.Scraped[target.Platform] = scrape
			if profile != nil {
				result.StyleProfile[target.Platform] = *profile
			}
			mu.Unlock()
		}(target)
	}

	wg.Wait()

	logger.Info("Analysis run finished", zap.String("run_id", runID))
	return result, nil
}

// runPlatform walks one platform through the stage machine. A nil
// ProfileStatus means the platform never got past scraping.
func (o *Orchestrator) runPlatform(ctx context.Context, runID, ownerID string, target scraper.Target, limit int) (ScrapeStatus, *ProfileStatus) {
	platform := target.Platform

	o.recorder.RecordStage(ctx, runID, platform, runstate.StagePending)

	adapter := o.adapters[platform]

	start := time.Now()
	nodes, err := adapter.Fetch(ctx, target.Handle, limit)
	metrics.ScrapeDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ScrapeTotal.WithLabelValues(platform, "error").Inc()
		logger.Warn("Platform scrape failed",
			zap.String("run_id", runID),
			zap.String("platform", platform),
			zap.Error(err),
		)
		return ScrapeStatus{Success: false, Error: err.Error()}, nil
	}
	metrics.ScrapeTotal.WithLabelValues(platform, "success").Inc()
	o.recorder.RecordStage(ctx, runID, platform, runstate.StageScraped)

	posts, unparsed := normalizer.NormalizeAll(ownerID, platform, nodes)
	metrics.PostsNormalized.WithLabelValues(platform).Add(float64(len(posts)))
	metrics.PostsUnparsed.WithLabelValues(platform).Add(float64(unparsed))
	o.recorder.RecordStage(ctx, runID, platform, runstate.StageParsed)

	payload, err := json.Marshal(nodes)
	if err != nil {
		return ScrapeStatus{Success: false, Error: fmt.Sprintf("failed to encode raw payload: %v", err)}, nil
	}

	if err := o.store.SaveRawScrape(&models.RawScrapeRecord{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Platform:     platform,
		SourceHandle: target.Handle,
		Payload:      string(payload),
		PostCount:    len(nodes),
		CapturedAt:   time.Now(),
	}); err != nil {
		return ScrapeStatus{Success: false, Error: err.Error()}, nil
	}

	inserted, err := o.store.BulkUpsertPosts(posts)
	if err != nil {
		return ScrapeStatus{Success: false, Error: err.Error()}, nil
	}
	metrics.PostsPersisted.WithLabelValues(platform).Add(float64(inserted))
	o.recorder.RecordStage(ctx, runID, platform, runstate.StagePersisted)

	scrape := ScrapeStatus{
		TotalPosts: len(posts),
		NewPosts:   inserted,
		Unparsed:   unparsed,
		Success:    true,
	}

	profile := o.synthesize(ctx, runID, ownerID, platform)
	return scrape, &profile
}

// synthesize runs the threshold check and the profile synthesis for one
// platform over everything persisted so far, not just this run's batch.
func (o *Orchestrator) synthesize(ctx context.Context, runID, ownerID, platform string) ProfileStatus {
	count, err := o.store.CountPosts(ownerID, platform)
	if err != nil {
		return ProfileStatus{Status: runstate.StageSynthesisFailed, Error: err.Error()}
	}

	if count < o.config.MinPosts {
		logger.Info("Corpus below synthesis threshold",
			zap.String("run_id", runID),
			zap.String("platform", platform),
			zap.Int("posts", count),
			zap.Int("min_posts", o.config.MinPosts),
		)
		o.recorder.RecordStage(ctx, runID, platform, runstate.StageSkippedNoData)
		metrics.SynthesisTotal.WithLabelValues(platform, "skipped").Inc()
		return ProfileStatus{Status: runstate.StageSkippedNoData}
	}

	corpus, err := o.store.GetPosts(ownerID, platform, o.config.CorpusLimit)
	if err != nil {
		return ProfileStatus{Status: runstate.StageSynthesisFailed, Error: err.Error()}
	}

	corpusInsights := insights.Build(corpus)

	start := time.Now()
	synthesized, err := o.synth.SynthesizeProfile(ctx, corpus, corpusInsights)
	metrics.SynthesisDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SynthesisTotal.WithLabelValues(platform, "error").Inc()
		logger.Warn("Profile synthesis failed",
			zap.String("run_id", runID),
			zap.String("platform", platform),
			zap.Error(err),
		)
		o.recorder.RecordStage(ctx, runID, platform, runstate.StageSynthesisFailed)
		return ProfileStatus{ID: "", Confidence: 0, Status: runstate.StageSynthesisFailed, Error: err.Error()}
	}

	score := confidence.Score(corpus)

	saved, err := o.store.SaveStyleProfile(&models.StyleProfile{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Platform:   platform,
		Sections:   synthesized.Sections,
		Confidence: score,
	})
	if err != nil {
		metrics.SynthesisTotal.WithLabelValues(platform, "error").Inc()
		o.recorder.RecordStage(ctx, runID, platform, runstate.StageSynthesisFailed)
		return ProfileStatus{ID: "", Confidence: 0, Status: runstate.StageSynthesisFailed, Error: err.Error()}
	}

	metrics.SynthesisTotal.WithLabelValues(platform, "success").Inc()
	metrics.ProfileConfidence.Observe(score.Overall)
	metrics.LLMTokensUsed.WithLabelValues("prompt").Add(float64(synthesized.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues("completion").Add(float64(synthesized.Usage.CompletionTokens))

	o.recorder.RecordStage(ctx, runID, platform, runstate.StageSynthesized)

	return ProfileStatus{
		ID:         saved.ID,
		Version:    saved.Version,
		Confidence: saved.Confidence.Overall,
		Status:     runstate.StageSynthesized,
	}
}
