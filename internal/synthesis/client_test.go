package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/creatorpulse/backend/internal/insights"
	"github.com/creatorpulse/backend/internal/storage/models"
	"github.com/creatorpulse/backend/pkg/circuitbreaker"
	"github.com/creatorpulse/backend/pkg/retry"
)

type fakeCompletionAPI struct {
	content string
	err     error
	calls   int
	lastReq openai.ChatCompletionRequest
}

func (f *fakeCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
		Usage: openai.Usage{PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

func newTestClient(api completionAPI) *Client {
	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = 1
	retryConfig.Retryable = func(err error) bool {
		var pe *ParseError
		return !errors.As(err, &pe)
	}

	return &Client{
		api:         api,
		model:       "gpt-4o",
		temperature: 0.4,
		maxTokens:   4096,
		corpusLimit: 50,
		timeout:     5 * time.Second,
		cb:          circuitbreaker.NewCircuitBreaker("test", circuitbreaker.Config{}),
		retryConfig: retryConfig,
	}
}

func corpus(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			Caption:   "caption",
			MediaType: models.MediaTypeImage,
			TakenAt:   1700000000 + int64(i),
		}
	}
	return posts
}

func TestSynthesizeProfileParsesFencedResponse(t *testing.T) {
	api := &fakeCompletionAPI{
		content: "```json\n{\"writing\": {\"tone\": \"warm\"}, \"identity\": {\"niche\": \"coffee\"}}\n```",
	}
	client := newTestClient(api)

	result, err := client.SynthesizeProfile(context.Background(), corpus(10), insights.CorpusInsights{})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	writing, ok := result.Sections["writing"].(map[string]any)
	if !ok || writing["tone"] != "warm" {
		t.Errorf("sections = %v", result.Sections)
	}
	if result.Usage.PromptTokens != 100 || result.Usage.CompletionTokens != 50 {
		t.Errorf("usage = %+v", result.Usage)
	}
}

func TestSynthesizeProfileProseOnlyIsParseError(t *testing.T) {
	api := &fakeCompletionAPI{
		content: "I am sorry, I cannot produce a profile for this creator.",
	}
	client := newTestClient(api)

	_, err := client.SynthesizeProfile(context.Background(), corpus(10), insights.CorpusInsights{})

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if api.calls != 1 {
		t.Errorf("calls = %d, parse errors must not be retried", api.calls)
	}
}

func TestSynthesizeProfileProviderErrorIsUnavailable(t *testing.T) {
	api := &fakeCompletionAPI{err: errors.New("connection reset")}
	client := newTestClient(api)

	_, err := client.SynthesizeProfile(context.Background(), corpus(10), insights.CorpusInsights{})

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestBuildDataBlockCapsCorpus(t *testing.T) {
	client := newTestClient(&fakeCompletionAPI{})
	client.corpusLimit = 5

	block, err := client.buildDataBlock(corpus(40), insights.CorpusInsights{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if !strings.Contains(block, "Here are 5 posts") {
		t.Errorf("data block not capped: %s", block[:80])
	}
}

func TestSynthesizeProfileSendsRubricAndData(t *testing.T) {
	api := &fakeCompletionAPI{content: `{"identity":{}}`}
	client := newTestClient(api)

	posts := corpus(3)
	posts[0].Caption = "my distinctive caption text"

	_, err := client.SynthesizeProfile(context.Background(), posts, insights.CorpusInsights{TopHashtags: []string{"#coffee"}})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if len(api.lastReq.Messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(api.lastReq.Messages))
	}
	if api.lastReq.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %s", api.lastReq.Messages[0].Role)
	}
	if !strings.Contains(api.lastReq.Messages[0].Content, "generation_template") {
		t.Error("rubric missing target shape hint")
	}
	user := api.lastReq.Messages[1].Content
	if !strings.Contains(user, "my distinctive caption text") {
		t.Error("corpus missing from data block")
	}
	if !strings.Contains(user, "#coffee") {
		t.Error("insights missing from data block")
	}
	if api.lastReq.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want bounded output", api.lastReq.MaxTokens)
	}
}

func TestDataBlockSummariesAreCompact(t *testing.T) {
	client := newTestClient(&fakeCompletionAPI{})

	posts := []models.Post{{
		Caption:   "c",
		MediaURL:  "https://cdn/very-long-signed-url-that-wastes-context.jpg",
		MediaType: models.MediaTypeImage,
	}}

	block, err := client.buildDataBlock(posts, insights.CorpusInsights{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if strings.Contains(block, "very-long-signed-url") {
		t.Error("media URLs must not be embedded in the data block")
	}

	// The embedded document itself must be valid JSON.
	start := strings.IndexByte(block, '{')
	end := strings.LastIndexByte(block, '}')
	if start < 0 || end <= start || !json.Valid([]byte(block[start:end+1])) {
		t.Error("data block does not embed a valid JSON document")
	}
}
