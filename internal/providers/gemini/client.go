// Package gemini is a text-completion client backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"cineforge/promptsearch/internal/domain"
)

const (
	ServiceName        = "gemini"
	defaultTemperature = 0.2
)

// DefaultModels are tried in order after any configured preference.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-pro"}

var (
	ErrDisabled = errors.New("gemini client is not configured")
	ErrNoText   = errors.New("gemini returned no text")
)

type Config struct {
	APIKey string
	// Models are tried first, then DefaultModels. Duplicates are skipped.
	Models      []string
	Temperature float32
}

type generateFunc func(ctx context.Context, model, prompt string) (string, error)

type Client struct {
	client   *genai.Client
	models   []string
	generate generateFunc
}

// NewClient builds a client. An empty API key yields a disabled client
// whose Complete always fails with ErrDisabled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return &Client{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	c := &Client{client: client, models: modelCandidates(cfg.Models)}
	c.generate = func(ctx context.Context, name, prompt string) (string, error) {
		model := client.GenerativeModel(name)
		model.ResponseMIMEType = "application/json"
		model.SetTemperature(temperature)
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", classify(err)
		}
		return extractText(resp)
	}
	return c, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.generate != nil
}

// Complete sends prompt to the first model that accepts it. A model that is
// missing or not permitted moves on to the next candidate; any other error
// is returned immediately.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	var lastErr error
	for _, model := range c.models {
		text, err := c.generate(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		if !modelUnavailable(err) {
			return "", err
		}
		slog.Warn("gemini model unavailable, trying next",
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no gemini models configured")
	}
	return "", fmt.Errorf("all gemini models failed: %w", lastErr)
}

func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func modelCandidates(preferred []string) []string {
	out := make([]string, 0, len(preferred)+len(DefaultModels))
	seen := make(map[string]struct{}, cap(out))
	for _, name := range append(append([]string{}, preferred...), DefaultModels...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// classify converts API errors into *domain.UpstreamError so retry and
// fallback decisions can look at the status code.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			Service:    ServiceName,
			Operation:  "generate",
			StatusCode: apiErr.Code,
			Body:       strings.TrimSpace(apiErr.Message),
		}
	}
	return err
}

func modelUnavailable(err error) bool {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.StatusCode == http.StatusNotFound || upstream.StatusCode == http.StatusForbidden {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "unsupported") || strings.Contains(msg, "not supported")
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoText
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", ErrNoText
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoText
	}
	return b.String(), nil
}
