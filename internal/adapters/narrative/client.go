package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"globus_tours/internal/adapters/observability"
)

// ErrMissingAPIKey is returned at construction when no key is configured.
var ErrMissingAPIKey = errors.New("narrative: API key is required")

const systemPrompt = `You summarize hotel guest reviews for travel agents. ` +
	`Respond with a JSON object {"summary": "..."} containing a concise, ` +
	`balanced summary of the reviews you are given.`

// Client produces a short narrative summary of review texts through a
// chat-completions style JSON API. Treated as a pure request/response call.
type Client struct {
	base  string
	key   string
	model string
	hc    *http.Client
}

func New(base, key, model string) (*Client, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		key:   key,
		model: model,
		hc:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize implements domain.ReviewSummarizer.
func (c *Client) Summarize(ctx context.Context, hotelName string, reviews []string) (string, error) {
	if len(reviews) == 0 {
		return "", nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Hotel: %s\nReviews:\n", hotelName)
	for _, r := range reviews {
		fmt.Fprintf(&user, "- %s\n", r)
	}

	payload := chatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: map[string]any{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user.String()},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrative: request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("narrative", "chat_completions", resp.StatusCode, time.Since(start))

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("narrative: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("narrative: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("narrative: no choices in response")
	}

	var parsed struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &parsed); err != nil {
		return "", fmt.Errorf("narrative: decode summary: %w", err)
	}
	return parsed.Summary, nil
}
