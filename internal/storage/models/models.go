package models

import "time"

const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeCarousel = "carousel"
)

const (
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
)

// Post is the platform-agnostic form of one social-media post. A row is
// uniquely identified by (OwnerID, Platform, ExternalPostID) and is never
// rewritten once persisted.
type Post struct {
	OwnerID        string
	Platform       string
	ExternalPostID string
	PostURL        string
	Caption        string
	Hashtags       []string
	MediaType      string
	MediaURL       string
	CarouselMedia  []CarouselItem
	LikeCount      int
	CommentCount   int
	TakenAt        int64
	CreatedAt      time.Time
}

type CarouselItem struct {
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
}

func (p *Post) HasCaption() bool {
	return p.Caption != ""
}

func (p *Post) HasHashtags() bool {
	return len(p.Hashtags) > 0
}

func (p *Post) HasMedia() bool {
	return p.MediaURL != "" || len(p.CarouselMedia) > 0
}

// RawScrapeRecord is the forensic audit entry for one adapter call. Rows
// are append-only and never deduplicated.
type RawScrapeRecord struct {
	ID           string
	OwnerID      string
	Platform     string
	SourceHandle string
	Payload      string
	PostCount    int
	CapturedAt   time.Time
}

// StyleProfile holds the synthesized fingerprint for one owner on one
// platform. Exactly one current row exists per (OwnerID, Platform); the
// previous row is snapshotted to history before each overwrite.
type StyleProfile struct {
	ID         string
	OwnerID    string
	Platform   string
	Version    int
	Sections   map[string]any
	Confidence ConfidenceScore
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type StyleProfileSnapshot struct {
	ID            int64
	ProfileID     string
	OwnerID       string
	Platform      string
	Version       int
	Sections      map[string]any
	Confidence    float64
	SnapshottedAt time.Time
}

// ConfidenceScore is the locally computed trust measure for a profile.
// Every scalar lies in [0,1].
type ConfidenceScore struct {
	Overall         float64       `json:"overall"`
	SampleSizeScore float64       `json:"sample_size_score"`
	DateRangeScore  float64       `json:"date_range_score"`
	Completeness    float64       `json:"completeness"`
	AnalysisDepth   AnalysisDepth `json:"analysis_depth"`
}

type AnalysisDepth struct {
	Textual     float64 `json:"textual"`
	Visual      float64 `json:"visual"`
	Correlation float64 `json:"correlation"`
}
