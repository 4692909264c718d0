package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInstagramFetchParsesItems(t *testing.T) {
	var gotCount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCount = r.URL.Query().Get("count")
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[{"id":"1","caption":{"text":"hi #go"}},{"id":"2"}]}}`))
	}))
	defer server.Close()

	adapter := NewInstagramAdapter(server.URL, "test-key", 5*time.Second)

	nodes, err := adapter.Fetch(context.Background(), "someuser", 25)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}
	if nodes[0]["id"] != "1" {
		t.Errorf("first node id = %v", nodes[0]["id"])
	}
	if gotCount != "25" {
		t.Errorf("count param = %q, want 25", gotCount)
	}
}

func TestInstagramFetchClampsLimit(t *testing.T) {
	var gotCount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCount = r.URL.Query().Get("count")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	adapter := NewInstagramAdapter(server.URL, "k", 5*time.Second)

	if _, err := adapter.Fetch(context.Background(), "u", 3); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotCount != "10" {
		t.Errorf("count param = %q, want clamped 10", gotCount)
	}

	if _, err := adapter.Fetch(context.Background(), "u", 500); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotCount != "100" {
		t.Errorf("count param = %q, want clamped 100", gotCount)
	}
}

func TestInstagramFetchSurfacesTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"provider_internal":"secret quota details"}`))
	}))
	defer server.Close()

	adapter := NewInstagramAdapter(server.URL, "k", 5*time.Second)

	_, err := adapter.Fetch(context.Background(), "u", 20)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var ae *AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if ae.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", ae.StatusCode)
	}
	if ae.Retryable() {
		t.Error("403 must not be retryable")
	}
	if strings.Contains(err.Error(), "secret quota details") {
		t.Errorf("provider body leaked into error: %q", err.Error())
	}
}

func TestInstagramFetchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	adapter := NewInstagramAdapter(server.URL, "k", 5*time.Second)
	adapter.retryConfig.MaxAttempts = 1

	_, err := adapter.Fetch(context.Background(), "u", 20)

	var ae *AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if ae.Op != "decode response" {
		t.Errorf("op = %q, want decode response", ae.Op)
	}
}
