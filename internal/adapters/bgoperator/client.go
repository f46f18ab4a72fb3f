package bgoperator

import (
	"compress/gzip"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"globus_tours/internal/adapters/observability"
)

// ErrSessionExpired signals the caller must re-authenticate. The client does
// not re-authenticate itself: hidden retries here would mask a systemic
// outage from the orchestrator.
var ErrSessionExpired = errors.New("bgoperator: session expired")

// JSONGetter is the slice of Client the reference and search layers consume.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, out any) error
}

// Client wraps operator calls with the shared session attached. It retries
// transient 5xx/429 with jittered backoff, honoring Retry-After, and rotates
// the session token from every successful response.
type Client struct {
	sess *Session
	hc   *http.Client
}

// NewClient builds a client over a shared (not copied) session reference.
func NewClient(sess *Session, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	// gzip is negotiated by hand so the Accept-Encoding header is always
	// present; DisableCompression keeps the transport from doing it twice.
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableCompression = true
	return &Client{
		sess: sess,
		hc:   &http.Client{Timeout: timeout, Transport: tr},
	}
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt; the cookie header is a snapshot of
		// whatever token is current right now
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Cookie", c.sess.CookieHeader())
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("bgoperator", endpointLabel(rawURL), resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return ErrSessionExpired

		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			c.rotateFrom(resp)
			err := decodeJSON(resp, out)
			resp.Body.Close()
			return err

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("bgoperator: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bgoperator: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// rotateFrom installs a reissued Z1 token, if the response carries one.
func (c *Client) rotateFrom(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name == cookieRotor && ck.Value != "" {
			c.sess.Rotate(ck.Value)
			return
		}
	}
}

func decodeJSON(resp *http.Response, out any) error {
	var body io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("bgoperator: gzip body: %w", err)
		}
		defer gz.Close()
		body = gz
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("bgoperator: decode response: %w", err)
	}
	return nil
}

func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	if action := u.Query().Get("action"); action != "" {
		return action
	}
	return u.Path
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns exponential backoff (200ms, 400ms, 800ms...) with up to
// +50% jitter from crypto/rand, which is safe under concurrent callers.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
