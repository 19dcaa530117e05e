package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dosipov/geotech-qa/internal/infrastructure/resilience"
)

const (
	// Returned in place of an answer when every generation attempt
	// timed out.
	overloadedMessage = "I'm experiencing high load right now. Please try again in a moment."
	// Returned in place of an answer when generation failed for any
	// other reason.
	failedMessage = "I'm having trouble processing your request. Please try again."
)

// CallMetrics records the outcome of each transport call, retries
// included.
type CallMetrics interface {
	RecordLLMCall(service, operation string, err error)
}

type noopCallMetrics struct{}

func (noopCallMetrics) RecordLLMCall(string, string, error) {}

// Client talks to the Gemini REST API. Generation runs under the
// resilience executor with a per-attempt timeout; exhausted retries
// degrade to a static apology instead of an error so the pipeline can
// keep moving.
type Client struct {
	service    string
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	timeout    time.Duration
	httpClient *http.Client
	executor   *resilience.Executor
	metrics    CallMetrics
	logger     *slog.Logger
}

func New(service, baseURL, apiKey, genModel, embedModel string, timeout time.Duration, executor *resilience.Executor, metrics CallMetrics, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if metrics == nil {
		metrics = noopCallMetrics{}
	}
	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
		executor:   executor,
		metrics:    metrics,
		logger:     logger,
	}
}

// Configured reports whether an API key is present. Callers check this
// before attempting generation so an unconfigured deployment degrades
// deterministically instead of erroring per request.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("gemini: api key is not set")
	}

	var text string
	start := time.Now()
	err := c.executor.Execute(ctx, "generate", func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		result, err := c.generateContent(attemptCtx, prompt)
		if err != nil {
			if attemptCtx.Err() != nil && ctx.Err() == nil {
				return &TimeoutError{Operation: "generate", Timeout: c.timeout}
			}
			return err
		}
		text = result
		return nil
	}, classifyGeminiError)

	if err == nil {
		c.logger.Debug("gemini_generate_ok", "duration_ms", time.Since(start).Milliseconds())
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	c.logger.Error("gemini_generate_failed", "error", err, "duration_ms", time.Since(start).Milliseconds())

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return overloadedMessage, nil
	}
	return failedMessage, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	request := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	var response generateResponse
	path := "/models/" + c.genModel + ":generateContent"
	if err := c.postJSON(ctx, path, request, &response, "generate"); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
