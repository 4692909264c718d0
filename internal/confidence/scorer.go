package confidence

import (
	"math"

	"github.com/creatorpulse/backend/internal/storage/models"
)

// Saturation points for the individual signals: 50 posts is a full
// sample, 90 days is a full date range.
const (
	fullSampleSize   = 50.0
	fullDateRangeDay = 90.0
	secondsPerDay    = 86400.0
)

// correlationPlaceholder is not data-derived. The cross-dimension
// correlation analysis never shipped, so the sub-score is pinned until it
// does.
const correlationPlaceholder = 0.5

// Score computes the trust measure for a corpus. Pure and local; no
// network calls. Every scalar in the result lies in [0,1].
func Score(posts []models.Post) models.ConfidenceScore {
	n := len(posts)
	if n == 0 {
		return models.ConfidenceScore{
			AnalysisDepth: models.AnalysisDepth{Correlation: correlationPlaceholder},
		}
	}

	sampleScore := math.Min(float64(n)/fullSampleSize, 1)

	var withCaption, withHashtags, withMedia int
	minTS, maxTS := int64(math.MaxInt64), int64(math.MinInt64)
	distinct := make(map[int64]struct{}, n)

	for i := range posts {
		p := &posts[i]
		if p.HasCaption() {
			withCaption++
		}
		if p.HasHashtags() {
			withHashtags++
		}
		if p.HasMedia() {
			withMedia++
		}
		if p.TakenAt < minTS {
			minTS = p.TakenAt
		}
		if p.TakenAt > maxTS {
			maxTS = p.TakenAt
		}
		distinct[p.TakenAt] = struct{}{}
	}

	dateScore := 0.0
	if len(distinct) >= 2 {
		rangeDays := float64(maxTS-minTS) / secondsPerDay
		dateScore = math.Min(rangeDays/fullDateRangeDay, 1)
	}

	completeness := float64(withCaption+withHashtags+withMedia) / (3 * float64(n))

	overall := round2((sampleScore + dateScore + completeness) / 3)
	overall = clamp01(overall)

	return models.ConfidenceScore{
		Overall:         overall,
		SampleSizeScore: sampleScore,
		DateRangeScore:  dateScore,
		Completeness:    completeness,
		AnalysisDepth: models.AnalysisDepth{
			Textual:     float64(withCaption) / float64(n),
			Visual:      float64(withMedia) / float64(n),
			Correlation: correlationPlaceholder,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
