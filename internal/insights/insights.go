package insights

import (
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/creatorpulse/backend/internal/storage/models"
)

const (
	maxTopHashtags = 10
	maxTopKeywords = 10
)

// CorpusInsights are cheap, locally computed corpus statistics embedded in
// the synthesis data block. They sharpen the rubric; they never replace
// the model's own analysis.
type CorpusInsights struct {
	TopHashtags  []string       `json:"top_hashtags,omitempty"`
	TopKeywords  []string       `json:"top_keywords,omitempty"`
	PostsPerWeek float64        `json:"posts_per_week"`
	MediaMix     map[string]int `json:"media_mix"`
}

func Build(posts []models.Post) CorpusInsights {
	out := CorpusInsights{
		TopHashtags:  topHashtags(posts),
		TopKeywords:  topKeywords(posts),
		PostsPerWeek: postingCadence(posts),
		MediaMix:     mediaMix(posts),
	}
	return out
}

func topHashtags(posts []models.Post) []string {
	counts := make(map[string]int)
	for i := range posts {
		for _, tag := range posts[i].Hashtags {
			counts[tag]++
		}
	}
	return topN(counts, maxTopHashtags)
}

// topKeywords runs POS tagging over the caption corpus and keeps the most
// frequent noun tokens. Hashtags and mentions are excluded; they are
// reported separately.
func topKeywords(posts []models.Post) []string {
	var sb strings.Builder
	for i := range posts {
		if posts[i].Caption == "" {
			continue
		}
		sb.WriteString(posts[i].Caption)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return nil
	}

	doc, err := prose.NewDocument(sb.String(),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil
	}

	counts := make(map[string]int)
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") {
			continue
		}
		word := strings.ToLower(tok.Text)
		if len(word) < 3 || strings.HasPrefix(word, "#") || strings.HasPrefix(word, "@") {
			continue
		}
		counts[word]++
	}

	return topN(counts, maxTopKeywords)
}

func postingCadence(posts []models.Post) float64 {
	var minTS, maxTS int64
	seen := 0
	for i := range posts {
		ts := posts[i].TakenAt
		if ts == 0 {
			continue
		}
		if seen == 0 || ts < minTS {
			minTS = ts
		}
		if seen == 0 || ts > maxTS {
			maxTS = ts
		}
		seen++
	}

	if seen < 2 || maxTS == minTS {
		return 0
	}

	weeks := float64(maxTS-minTS) / (7 * 86400)
	return float64(seen) / weeks
}

func mediaMix(posts []models.Post) map[string]int {
	mix := make(map[string]int)
	for i := range posts {
		if posts[i].MediaType != "" {
			mix[posts[i].MediaType]++
		}
	}
	return mix
}

func topN(counts map[string]int, n int) []string {
	if len(counts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
