package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/logger"
	"github.com/creatorpulse/backend/pkg/retry"
)

// InstagramAdapter talks to a third-party Instagram scraping API that
// mirrors the private mobile feed shape (items with image_versions2,
// video_versions, carousel_media).
type InstagramAdapter struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.Config
}

func NewInstagramAdapter(baseURL, apiKey string, timeout time.Duration) *InstagramAdapter {
	retryConfig := retry.DefaultConfig()
	retryConfig.Retryable = IsRetryable
	retryConfig.Logger = logger.GetLogger()

	return &InstagramAdapter{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retryConfig,
	}
}

func (a *InstagramAdapter) Platform() string {
	return models.PlatformInstagram
}

func (a *InstagramAdapter) Fetch(ctx context.Context, handle string, limit int) ([]map[string]any, error) {
	limit = clampLimit(limit)

	return retry.DoWithResult(ctx, a.retryConfig, func() ([]map[string]any, error) {
		return a.fetchOnce(ctx, handle, limit)
	})
}

func (a *InstagramAdapter) fetchOnce(ctx context.Context, handle string, limit int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("username_or_id_or_url", handle)
	params.Set("count", fmt.Sprintf("%d", limit))

	endpoint := fmt.Sprintf("%s/v1/posts?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "build request", Err: err}
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "fetch posts", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &AdapterError{Platform: a.Platform(), Op: "fetch posts", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "read response", Err: err}
	}

	var payload struct {
		Data struct {
			Items []map[string]any `json:"items"`
		} `json:"data"`
		Items []map[string]any `json:"items"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &AdapterError{Platform: a.Platform(), Op: "decode response", Err: err}
	}

	items := payload.Data.Items
	if len(items) == 0 {
		items = payload.Items
	}

	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}
