package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/pkg/logger"
)

// Client keeps ephemeral per-run pipeline progress in redis so the
// dashboard can poll or stream it. Entries expire on their own; nothing
// here is a source of truth.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Run-state client initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

// RecordStage stores the latest stage for one platform of one run.
// Best-effort: failures are logged, never propagated.
func (c *Client) RecordStage(ctx context.Context, runID, platform, stage string) {
	key := runKey(runID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, platform, stage)
	pipe.HSet(ctx, key, platform+":updated_at", time.Now().Unix())
	pipe.Expire(ctx, key, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("Failed to record run stage",
			zap.String("run_id", runID),
			zap.String("platform", platform),
			zap.Error(err),
		)
	}
}

// GetRun returns every recorded field for a run, or an empty map when the
// run is unknown or already expired.
func (c *Client) GetRun(ctx context.Context, runID string) (map[string]string, error) {
	fields, err := c.client.HGetAll(ctx, runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}
	return fields, nil
}
