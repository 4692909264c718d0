package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/logger"
	"github.com/creatorpulse/backend/pkg/retry"
)

// TikTokAdapter scrapes the public profile page. TikTok embeds its full
// hydration state as JSON in a script tag; goquery locates it and the
// adapter translates ItemModule entries into the common raw-node
// vocabulary the normalizer understands.
type TikTokAdapter struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
}

type tiktokItem struct {
	ID         string `json:"id"`
	Desc       string `json:"desc"`
	CreateTime string `json:"createTime"`
	Stats      struct {
		DiggCount    int `json:"diggCount"`
		CommentCount int `json:"commentCount"`
	} `json:"stats"`
	Video struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		PlayAddr     string `json:"playAddr"`
		DownloadAddr string `json:"downloadAddr"`
	} `json:"video"`
	Author string `json:"author"`
}

func NewTikTokAdapter(baseURL string, timeout time.Duration) *TikTokAdapter {
	retryConfig := retry.DefaultConfig()
	retryConfig.Retryable = IsRetryable
	retryConfig.Logger = logger.GetLogger()

	return &TikTokAdapter{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retryConfig,
	}
}

func (a *TikTokAdapter) Platform() string {
	return models.PlatformTikTok
}

func (a *TikTokAdapter) Fetch(ctx context.Context, handle string, limit int) ([]map[string]any, error) {
	limit = clampLimit(limit)

	return retry.DoWithResult(ctx, a.retryConfig, func() ([]map[string]any, error) {
		return a.fetchOnce(ctx, handle, limit)
	})
}

func (a *TikTokAdapter) fetchOnce(ctx context.Context, handle string, limit int) ([]map[string]any, error) {
	profileURL := fmt.Sprintf("%s/@%s", a.baseURL, handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "build request", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "fetch profile", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AdapterError{Platform: a.Platform(), Op: "fetch profile", StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "parse html", Err: err}
	}

	stateJSON := doc.Find("script#SIGI_STATE").First().Text()
	if stateJSON == "" {
		return nil, &AdapterError{Platform: a.Platform(), Op: "locate state", Err: fmt.Errorf("hydration state not found")}
	}

	var state struct {
		ItemModule map[string]tiktokItem `json:"ItemModule"`
	}
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "decode state", Err: err}
	}

	items := make([]tiktokItem, 0, len(state.ItemModule))
	for _, item := range state.ItemModule {
		items = append(items, item)
	}

	// ItemModule is a map; restore newest-first ordering.
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreateTime > items[j].CreateTime
	})

	if len(items) > limit {
		items = items[:limit]
	}

	nodes := make([]map[string]any, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, translateTikTokItem(handle, item))
	}

	return nodes, nil
}

func translateTikTokItem(handle string, item tiktokItem) map[string]any {
	mediaURL := item.Video.DownloadAddr
	if mediaURL == "" {
		mediaURL = item.Video.PlayAddr
	}

	return map[string]any{
		"id":            item.ID,
		"caption":       item.Desc,
		"media_type":    float64(2),
		"taken_at":      item.CreateTime,
		"like_count":    float64(item.Stats.DiggCount),
		"comment_count": float64(item.Stats.CommentCount),
		"permalink":     fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", handle, item.ID),
		"video_versions": []any{
			map[string]any{
				"url":    mediaURL,
				"width":  float64(item.Video.Width),
				"height": float64(item.Video.Height),
			},
		},
	}
}
