package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/creatorpulse/backend/internal/insights"
	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/circuitbreaker"
	"github.com/creatorpulse/backend/pkg/logger"
	"github.com/creatorpulse/backend/pkg/retry"
)

// ErrUnavailable marks provider/transport failures: timeouts, 5xx, open
// circuit. Parse failures are *ParseError instead.
var ErrUnavailable = errors.New("synthesis provider unavailable")

// ParseError means the provider answered but its output held no valid
// JSON document.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("synthesis output not parseable: %s", e.Reason)
}

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api         completionAPI
	model       string
	temperature float32
	maxTokens   int
	corpusLimit int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Result carries the parsed profile sections plus provider usage for
// metering.
type Result struct {
	Sections map[string]any
	Usage    Usage
}

func NewClient(apiKey, model string, temperature float32, maxTokens, corpusLimit int, timeout time.Duration) *Client {
	cb := circuitbreaker.NewCircuitBreaker("synthesis", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		// A parse failure will not improve on retry; transport failures
		// might.
		Retryable: func(err error) bool {
			var pe *ParseError
			return !errors.As(err, &pe)
		},
		Logger: logger.GetLogger(),
	}

	logger.Info("Synthesis client initialized",
		zap.String("model", model),
		zap.Int("corpus_limit", corpusLimit),
	)

	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		corpusLimit: corpusLimit,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// postSummary is the compact per-post form embedded in the data block to
// respect the provider's context budget.
type postSummary struct {
	Caption   string   `json:"caption"`
	Hashtags  []string `json:"hashtags,omitempty"`
	MediaType string   `json:"media_type"`
	Likes     int      `json:"likes"`
	Comments  int      `json:"comments"`
	TakenAt   int64    `json:"taken_at"`
}

// SynthesizeProfile runs one synchronous completion over the corpus and
// returns the parsed profile sections. The caller owns assembling the
// StyleProfile around them.
func (c *Client) SynthesizeProfile(ctx context.Context, posts []models.Post, corpusInsights insights.CorpusInsights) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt, err := c.buildDataBlock(posts, corpusInsights)
	if err != nil {
		return nil, fmt.Errorf("failed to build data block: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: profileRubric},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	var result *Result

	err = c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			if len(resp.Choices) == 0 {
				return &ParseError{Reason: "provider returned no choices"}
			}

			sections, err := ExtractProfileDocument(resp.Choices[0].Message.Content)
			if err != nil {
				return err
			}

			logger.Debug("Style profile synthesized",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &Result{
				Sections: sections,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
				},
			}
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	return result, nil
}

func (c *Client) buildDataBlock(posts []models.Post, corpusInsights insights.CorpusInsights) (string, error) {
	if len(posts) > c.corpusLimit {
		posts = posts[:c.corpusLimit]
	}

	summaries := make([]postSummary, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		summaries = append(summaries, postSummary{
			Caption:   p.Caption,
			Hashtags:  p.Hashtags,
			MediaType: p.MediaType,
			Likes:     p.LikeCount,
			Comments:  p.CommentCount,
			TakenAt:   p.TakenAt,
		})
	}

	payload := map[string]any{
		"posts":           summaries,
		"corpus_insights": corpusInsights,
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(dataBlockTemplate, len(summaries), string(encoded)), nil
}
