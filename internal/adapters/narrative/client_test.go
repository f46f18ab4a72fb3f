package narrative_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"globus_tours/internal/adapters/narrative"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := narrative.New("http://example.test", "", "gpt-4o-mini"); !errors.Is(err, narrative.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSummarize_EmptyReviews(t *testing.T) {
	c, err := narrative.New("http://unused.test", "k", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	summary, err := c.Summarize(context.Background(), "Savoy", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary != "" {
		t.Fatalf("expected empty summary without reviews, got %q", summary)
	}
}

func TestSummarize_ParsesModelJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k-9" {
			t.Errorf("missing bearer token, got %q", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "great breakfast") {
			t.Errorf("reviews not forwarded: %+v", req.Messages)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"Guests enjoy the breakfast.\"}"}}]}`))
	}))
	defer ts.Close()

	c, err := narrative.New(ts.URL, "k-9", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	summary, err := c.Summarize(context.Background(), "Savoy", []string{"great breakfast", "thin walls"})
	if err != nil {
		t.Fatal(err)
	}
	if summary != "Guests enjoy the breakfast." {
		t.Fatalf("summary = %q", summary)
	}
}

func TestSummarize_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer ts.Close()

	c, err := narrative.New(ts.URL, "k", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Summarize(context.Background(), "Savoy", []string{"ok"}); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestSummarize_MalformedModelOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
	}))
	defer ts.Close()

	c, err := narrative.New(ts.URL, "k", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Summarize(context.Background(), "Savoy", []string{"ok"}); err == nil {
		t.Fatal("expected decode error for non-JSON model output")
	}
}
