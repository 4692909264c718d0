package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const tiktokProfileHTML = `<!DOCTYPE html>
<html><head><title>@%s</title></head>
<body>
<script id="SIGI_STATE" type="application/json">{
  "ItemModule": {
    "7100000000000000001": {
      "id": "7100000000000000001",
      "desc": "older clip #first",
      "createTime": "1690000000",
      "stats": {"diggCount": 10, "commentCount": 2},
      "video": {"width": 720, "height": 1280, "playAddr": "https://cdn.tiktok/a.mp4"}
    },
    "7100000000000000002": {
      "id": "7100000000000000002",
      "desc": "newer clip #second",
      "createTime": "1695000000",
      "stats": {"diggCount": 50, "commentCount": 9},
      "video": {"width": 720, "height": 1280, "downloadAddr": "https://cdn.tiktok/b.mp4"}
    }
  }
}</script>
</body></html>`

func TestTikTokFetchTranslatesEmbeddedState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/@creator" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, tiktokProfileHTML, "creator")
	}))
	defer server.Close()

	adapter := NewTikTokAdapter(server.URL, 5*time.Second)

	nodes, err := adapter.Fetch(context.Background(), "creator", 20)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}

	// Newest first.
	first := nodes[0]
	if first["id"] != "7100000000000000002" {
		t.Errorf("first node id = %v, want newest", first["id"])
	}
	if first["caption"] != "newer clip #second" {
		t.Errorf("caption = %v", first["caption"])
	}
	if first["like_count"] != float64(50) {
		t.Errorf("like_count = %v, want 50", first["like_count"])
	}
	if first["media_type"] != float64(2) {
		t.Errorf("media_type = %v, want 2 (video)", first["media_type"])
	}

	versions, ok := first["video_versions"].([]any)
	if !ok || len(versions) != 1 {
		t.Fatalf("video_versions = %v", first["video_versions"])
	}
	rendition := versions[0].(map[string]any)
	if rendition["url"] != "https://cdn.tiktok/b.mp4" {
		t.Errorf("rendition url = %v, want downloadAddr", rendition["url"])
	}

	second := nodes[1]
	rendition = second["video_versions"].([]any)[0].(map[string]any)
	if rendition["url"] != "https://cdn.tiktok/a.mp4" {
		t.Errorf("rendition url = %v, want playAddr fallback", rendition["url"])
	}
}

func TestTikTokFetchMissingState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>captcha wall</body></html>"))
	}))
	defer server.Close()

	adapter := NewTikTokAdapter(server.URL, 5*time.Second)
	adapter.retryConfig.MaxAttempts = 1

	_, err := adapter.Fetch(context.Background(), "creator", 20)

	var ae *AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if ae.Op != "locate state" {
		t.Errorf("op = %q, want locate state", ae.Op)
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"1"}]}`))
	}))
	defer okServer.Close()

	brokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer brokenServer.Close()

	instagram := NewInstagramAdapter(okServer.URL, "k", 5*time.Second)
	tiktok := NewTikTokAdapter(brokenServer.URL, 5*time.Second)
	tiktok.retryConfig.MaxAttempts = 1

	adapters := map[string]Adapter{
		instagram.Platform(): instagram,
		tiktok.Platform():    tiktok,
	}
	targets := []Target{
		{Platform: instagram.Platform(), Handle: "good"},
		{Platform: tiktok.Platform(), Handle: "bad"},
		{Platform: "myspace", Handle: "ancient"},
	}

	results := FetchAll(context.Background(), adapters, targets, 20)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[instagram.Platform()].Err != nil {
		t.Errorf("instagram err = %v, want success", results[instagram.Platform()].Err)
	}
	if len(results[instagram.Platform()].Nodes) != 1 {
		t.Errorf("instagram nodes = %d, want 1", len(results[instagram.Platform()].Nodes))
	}
	if results[tiktok.Platform()].Err == nil {
		t.Error("tiktok err = nil, want failure")
	}
	if results["myspace"].Err == nil {
		t.Error("unregistered platform must report an error")
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 10}, {9, 10}, {10, 10}, {55, 55}, {100, 100}, {101, 100},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.in); got != tc.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
