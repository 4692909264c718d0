package runstate

import "context"

// Stage values a platform pipeline moves through. Each run ends in
// exactly one of the three terminal stages.
const (
	StagePending         = "PENDING"
	StageScraped         = "SCRAPED"
	StageParsed          = "PARSED"
	StagePersisted       = "PERSISTED"
	StageSkippedNoData   = "SKIPPED_INSUFFICIENT_DATA"
	StageSynthesized     = "SYNTHESIZED"
	StageSynthesisFailed = "SYNTHESIS_FAILED"
)

// Recorder receives stage transitions. Recording is best-effort
// observability; implementations must never fail the pipeline.
type Recorder interface {
	RecordStage(ctx context.Context, runID, platform, stage string)
}

// Nop discards every transition. Used when redis is disabled and in
// tests.
type Nop struct{}

func (Nop) RecordStage(ctx context.Context, runID, platform, stage string) {}
