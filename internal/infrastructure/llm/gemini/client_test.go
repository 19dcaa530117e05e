package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dosipov/geotech-qa/internal/infrastructure/resilience"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	return New(
		"test",
		baseURL,
		"test-key",
		"gen-model",
		"embed-model",
		timeout,
		resilience.NewExecutor(resilience.DefaultConfig()),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

type callMetricsFake struct {
	calls []string
	errs  []error
}

func (f *callMetricsFake) RecordLLMCall(_, operation string, err error) {
	f.calls = append(f.calls, operation)
	f.errs = append(f.errs, err)
}

func generateBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]}}]}`
}

func TestGenerateSendsPromptAndKey(t *testing.T) {
	var capturedPrompt, capturedKey, capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.Header.Get("x-goog-api-key")
		var payload generateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Contents) == 1 && len(payload.Contents[0].Parts) == 1 {
			capturedPrompt = payload.Contents[0].Parts[0].Text
		}
		_, _ = w.Write([]byte(generateBody("the answer")))
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Second)
	got, err := client.Generate(context.Background(), "what is bearing capacity?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "the answer" {
		t.Fatalf("Generate() = %q", got)
	}
	if capturedPrompt != "what is bearing capacity?" {
		t.Fatalf("unexpected prompt: %q", capturedPrompt)
	}
	if capturedKey != "test-key" {
		t.Fatalf("unexpected api key header: %q", capturedKey)
	}
	if capturedPath != "/models/gen-model:generateContent" {
		t.Fatalf("unexpected path: %q", capturedPath)
	}
}

func TestGenerateRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(generateBody("recovered")))
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Second)
	got, err := client.Generate(context.Background(), "q")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "recovered" {
		t.Fatalf("Generate() = %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestTransportCallsAreRecorded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(generateBody("recovered")))
	}))
	defer server.Close()

	recorder := &callMetricsFake{}
	client := New(
		"test",
		server.URL,
		"test-key",
		"gen-model",
		"embed-model",
		time.Second,
		resilience.NewExecutor(resilience.DefaultConfig()),
		recorder,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	if _, err := client.Generate(context.Background(), "q"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// One record per attempt: the failed first call and the retry.
	if len(recorder.calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(recorder.calls))
	}
	for _, op := range recorder.calls {
		if op != "generate" {
			t.Fatalf("unexpected operation %q", op)
		}
	}
	if recorder.errs[0] == nil {
		t.Fatal("first attempt should be recorded with its error")
	}
	if recorder.errs[1] != nil {
		t.Fatalf("retry should be recorded as success, got %v", recorder.errs[1])
	}
}

func TestGenerateDegradesAfterRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Second)
	got, err := client.Generate(context.Background(), "q")
	if err != nil {
		t.Fatalf("Generate() should degrade, got error %v", err)
	}
	if got != failedMessage {
		t.Fatalf("Generate() = %q, want failure apology", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGenerateDegradesToOverloadOnTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, 30*time.Millisecond)
	got, err := client.Generate(context.Background(), "q")
	if err != nil {
		t.Fatalf("Generate() should degrade, got error %v", err)
	}
	if got != overloadedMessage {
		t.Fatalf("Generate() = %q, want overload apology", got)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := New(
		"test",
		"http://localhost:0",
		"",
		"gen-model",
		"embed-model",
		time.Second,
		resilience.NewExecutor(resilience.DefaultConfig()),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if client.Configured() {
		t.Fatal("client without key must not report configured")
	}
	if _, err := client.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGeneratePropagatesCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := newTestClient(server.URL, time.Second)
	_, err := client.Generate(ctx, "q")
	if err == nil {
		t.Fatal("expected caller cancellation to surface as an error")
	}
}

func TestEmbedBatchesAllTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload embedBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Requests) != 2 {
			t.Fatalf("expected one batch of 2 requests, got %d", len(payload.Requests))
		}
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL, time.Second))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL, time.Second))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
