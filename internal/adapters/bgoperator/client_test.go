package bgoperator_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"globus_tours/internal/adapters/bgoperator"
)

func TestClient_AttachesCookiesAndRotatesToken(t *testing.T) {
	var cookies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies = append(cookies, r.Header.Get("Cookie"))
		http.SetCookie(w, &http.Cookie{Name: "Z1", Value: "rot-2"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	sess := bgoperator.NewSession("sess-1", "rot-1", "ru")
	cl := bgoperator.NewClient(sess, 2*time.Second)
	ctx := context.Background()

	var out map[string]any
	if err := cl.GetJSON(ctx, ts.URL, &out); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if got := sess.RotatingToken(); got != "rot-2" {
		t.Fatalf("expected rotated token rot-2, got %s", got)
	}

	// second call carries the new token in its cookie header
	if err := cl.GetJSON(ctx, ts.URL, &out); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(cookies))
	}
	if !strings.Contains(cookies[0], "Z1=rot-1") || !strings.Contains(cookies[1], "Z1=rot-2") {
		t.Fatalf("unexpected cookie headers: %v", cookies)
	}
	for _, c := range cookies {
		if !strings.Contains(c, "A1=sess-1") || !strings.Contains(c, "L=ru") {
			t.Fatalf("missing session cookies: %s", c)
		}
	}
}

func TestClient_UnauthorizedIsSessionExpired(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl := bgoperator.NewClient(bgoperator.NewSession("a", "z", "l"), 2*time.Second)
	var out map[string]any
	err := cl.GetJSON(context.Background(), ts.URL, &out)
	if !errors.Is(err, bgoperator.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestClient_DecodesGzipBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ae := r.Header.Get("Accept-Encoding"); !strings.Contains(ae, "gzip") {
			t.Errorf("expected gzip requested, got %q", ae)
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_ = json.NewEncoder(gz).Encode(map[string]string{"status": "ok"})
		_ = gz.Close()
	}))
	defer ts.Close()

	cl := bgoperator.NewClient(bgoperator.NewSession("a", "z", "l"), 2*time.Second)
	var out map[string]string
	if err := cl.GetJSON(context.Background(), ts.URL, &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			_, _ = w.Write([]byte(`{"entries":[]}`))
		}
	}))
	defer ts.Close()

	cl := bgoperator.NewClient(bgoperator.NewSession("a", "z", "l"), 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out map[string]any
	if err := cl.GetJSON(ctx, ts.URL, &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}
