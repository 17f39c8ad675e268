// ABOUTME: HTTP client for the Gemini generateContent API
// ABOUTME: Implements the completion collaborator used by the conversation service

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the public Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is used when the configuration does not name one.
	DefaultModel = "gemini-2.0-flash"

	defaultTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("completion API key not configured")

// ErrNoContent is returned when a successful response carries no reply
// text (no candidates, or candidates without text parts).
var ErrNoContent = errors.New("completion response contained no content")

// APIError represents a non-200 response from the API.
type APIError struct {
	StatusCode int
	Message    string // server-provided message, may be empty
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion API returned status %d: %s", e.StatusCode, e.Message)
}

// Config holds the completion client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// MaxAttempts caps how many times a request is attempted.
	// Only transport failures are retried; any response from the API,
	// success or error, is final. Values below 1 mean a single attempt.
	MaxAttempts int
}

// Client calls the generateContent endpoint over plain HTTP.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates a completion client. If logger is nil, slog.Default() is used.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With("component", "gemini"),
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Request and response shapes for generateContent.
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
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt to the model and returns the reply text.
// It returns ErrNotConfigured without issuing a request when no API key
// is set, *APIError for non-200 responses, and ErrNoContent when a 200
// response has no text to extract.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		reply, err := c.post(ctx, body)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		// API responses are final, only transport failures retry
		var apiErr *APIError
		if errors.As(err, &apiErr) || errors.Is(err, ErrNoContent) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}

		if attempt < c.maxAttempts {
			c.logger.Warn("completion attempt failed, retrying",
				"attempt", attempt, "error", err)
		}
	}

	return "", lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("completion API error",
			"status", resp.StatusCode, "body_bytes", len(respBody))
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(respBody),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	text := parsed.text()
	if text == "" {
		return "", ErrNoContent
	}

	c.logger.Debug("completion received", "model", c.model, "chars", len(text))
	return text, nil
}

// text extracts the reply from the first candidate, concatenating its
// parts. Returns "" when there is nothing to extract.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for _, p := range r.Candidates[0].Content.Parts {
		buf.WriteString(p.Text)
	}
	return buf.String()
}

// apiErrorMessage pulls the server message out of an error body.
// Unparseable bodies yield an empty message.
func apiErrorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}
