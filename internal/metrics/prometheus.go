package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creatorpulse_scrape_duration_seconds",
			Help:    "Adapter fetch duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
		[]string{"platform"},
	)

	ScrapeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_scrape_total",
			Help: "Total scrape attempts",
		},
		[]string{"platform", "status"},
	)

	PostsNormalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_posts_normalized_total",
			Help: "Raw nodes normalized into canonical posts",
		},
		[]string{"platform"},
	)

	PostsUnparsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_posts_unparsed_total",
			Help: "Raw nodes skipped as unparseable",
		},
		[]string{"platform"},
	)

	PostsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_posts_persisted_total",
			Help: "Canonical posts newly inserted",
		},
		[]string{"platform"},
	)

	SynthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_synthesis_total",
			Help: "Style profile synthesis attempts",
		},
		[]string{"platform", "status"},
	)

	SynthesisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creatorpulse_synthesis_duration_seconds",
			Help:    "Provider synthesis call duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"platform"},
	)

	ProfileConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "creatorpulse_profile_confidence",
			Help:    "Confidence score of synthesized profiles",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creatorpulse_llm_tokens_used",
			Help: "Total provider tokens used",
		},
		[]string{"type"},
	)
)

func Init() {
	prometheus.MustRegister(ScrapeDuration)
	prometheus.MustRegister(ScrapeTotal)
	prometheus.MustRegister(PostsNormalized)
	prometheus.MustRegister(PostsUnparsed)
	prometheus.MustRegister(PostsPersisted)
	prometheus.MustRegister(SynthesisTotal)
	prometheus.MustRegister(SynthesisDuration)
	prometheus.MustRegister(ProfileConfidence)
	prometheus.MustRegister(LLMTokensUsed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
