// Package llm is the generative-model client. The call is opaque to the
// rest of the pipeline: titled sections in, text out, optional reasoning
// trace out.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qda-labs/funnel/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// Client generates model completions from compiled prompt sections.
// Implemented by *HTTPClient; stubbed in tests.
type Client interface {
	// Generate returns the answer text and, for reasoning models, the
	// model's reasoning trace. The answer may be empty on a best-effort
	// response; transport failures and timeouts are returned as errors
	// and never retried here.
	Generate(ctx context.Context, sections []domain.PromptSection) (answer, reasoning string, err error)

	// Model returns the configured model identifier.
	Model() string
}

// ClientOption configures the client.
type ClientOption func(*HTTPClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each Generate call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// HTTPClient calls an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a model client. It fails loudly when no API key is
// configured; the process keeps serving calls that do not need the model.
func New(apiKey, model string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, domain.ErrConfiguration("model API key is not configured")
	}
	c := &HTTPClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model identifier.
func (c *HTTPClient) Model() string {
	return c.model
}

type chatMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate flattens the sections into a single user message and performs
// one chat-completion call.
func (c *HTTPClient) Generate(ctx context.Context, sections []domain.PromptSection) (string, string, error) {
	req := &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a precise assistant."},
			{Role: "user", Content: FlattenSections(sections)},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", domain.ErrUpstream(fmt.Sprintf("model call failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", domain.ErrUpstream(fmt.Sprintf("malformed model response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("model returned status %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", "", domain.ErrUpstream(msg)
	}
	if len(parsed.Choices) == 0 {
		return "", "", nil
	}

	msg := parsed.Choices[0].Message
	return msg.Content, msg.ReasoningContent, nil
}

// FlattenSections joins titled sections into the single prompt text sent
// to the model.
func FlattenSections(sections []domain.PromptSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Title+"\n"+s.Content)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
