package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/creatorpulse/backend/pkg/logger"
)

// Limits accepted by every adapter. Anything outside is clamped, not
// rejected.
const (
	MinFetchLimit = 10
	MaxFetchLimit = 100
)

// Adapter fetches raw post records for one platform. Implementations
// absorb the provider's response shape entirely; callers only ever see
// decoded nodes and *AdapterError.
type Adapter interface {
	Platform() string
	Fetch(ctx context.Context, handle string, limit int) ([]map[string]any, error)
}

// AdapterError is the only error type adapters surface. Provider-internal
// response text never leaks past it.
type AdapterError struct {
	Platform   string
	Op         string
	StatusCode int
	Err        error
}

func (e *AdapterError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s scraper: %s returned status %d", e.Platform, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s scraper: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could help. Client errors are
// permanent; transport failures and server-side errors are not.
func (e *AdapterError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable is the retry predicate wired into pkg/retry configs.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return true
}

func clampLimit(limit int) int {
	if limit < MinFetchLimit {
		return MinFetchLimit
	}
	if limit > MaxFetchLimit {
		return MaxFetchLimit
	}
	return limit
}

type Target struct {
	Platform string
	Handle   string
}

type FetchResult struct {
	Platform string
	Handle   string
	Nodes    []map[string]any
	Duration time.Duration
	Err      error
}

// FetchAll runs every requested adapter concurrently and returns one
// result per platform. No platform's failure blocks another's.
func FetchAll(ctx context.Context, adapters map[string]Adapter, targets []Target, limit int) map[string]FetchResult {
	results := make(map[string]FetchResult, len(targets))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range targets {
		adapter, ok := adapters[target.Platform]
		if !ok {
			// Earlier targets may already have goroutines writing the
			// map; this write needs the lock too.
			mu.Lock()
			results[target.Platform] = FetchResult{
				Platform: target.Platform,
				Handle:   target.Handle,
				Err: &AdapterError{
					Platform: target.Platform,
					Op:       "fetch",
					Err:      fmt.Errorf("no adapter registered"),
				},
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(adapter Adapter, target Target) {
			defer wg.Done()

			start := time.Now()
			nodes, err := adapter.Fetch(ctx, target.Handle, limit)
			elapsed := time.Since(start)

			if err != nil {
				logger.Warn("Scrape failed",
					zap.String("platform", target.Platform),
					zap.String("handle", target.Handle),
					zap.Error(err),
				)
			} else {
				logger.Info("Scrape completed",
					zap.String("platform", target.Platform),
					zap.String("handle", target.Handle),
					zap.Int("posts", len(nodes)),
					zap.Duration("duration", elapsed),
				)
			}

			mu.Lock()
			results[target.Platform] = FetchResult{
				Platform: target.Platform,
				Handle:   target.Handle,
				Nodes:    nodes,
				Duration: elapsed,
				Err:      err,
			}
			mu.Unlock()
		}(adapter, target)
	}

	wg.Wait()
	return results
}
