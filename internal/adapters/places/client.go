package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"globus_tours/internal/adapters/observability"
	"globus_tours/internal/domain"
)

// ErrMissingAPIKey is returned at construction when no key is configured.
var ErrMissingAPIKey = errors.New("places: API key is required")

// ErrNoMatch means the provider could not resolve the name/address pair.
var ErrNoMatch = errors.New("places: no matching place")

const photoMaxWidth = 800

// Client resolves a hotel name/address to place data: rating, photo URLs,
// category tags and raw review texts. Calls are rate limited client-side
// because the provider bills per request.
type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type findResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		PlaceID string `json:"place_id"`
	} `json:"candidates"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Rating float64  `json:"rating"`
		Types  []string `json:"types"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Reviews []struct {
			Text string `json:"text"`
		} `json:"reviews"`
	} `json:"result"`
}

// Resolve implements domain.PlaceResolver. The Amenities field of the result
// carries the provider's raw category tags; mapping them to the fixed
// amenity vocabulary is the orchestrator's job.
func (c *Client) Resolve(ctx context.Context, name, address string) (domain.PlaceInfo, error) {
	var find findResponse
	findURL := fmt.Sprintf("%s/findplacefromtext/json?input=%s&inputtype=textquery&fields=place_id&key=%s",
		c.base, url.QueryEscape(name+", "+address), c.key)
	if err := c.get(ctx, "findplace", findURL, &find); err != nil {
		return domain.PlaceInfo{}, err
	}
	if find.Status != "OK" || len(find.Candidates) == 0 {
		return domain.PlaceInfo{}, fmt.Errorf("%w: %q (%s)", ErrNoMatch, name, find.Status)
	}

	var det detailsResponse
	detURL := fmt.Sprintf("%s/details/json?place_id=%s&fields=rating,photos,types,reviews&key=%s",
		c.base, url.QueryEscape(find.Candidates[0].PlaceID), c.key)
	if err := c.get(ctx, "details", detURL, &det); err != nil {
		return domain.PlaceInfo{}, err
	}
	if det.Status != "OK" {
		return domain.PlaceInfo{}, fmt.Errorf("places: details status %s", det.Status)
	}

	info := domain.PlaceInfo{
		Rating:    det.Result.Rating,
		Amenities: det.Result.Types,
	}
	for _, p := range det.Result.Photos {
		if p.PhotoReference == "" {
			continue
		}
		info.Photos = append(info.Photos, c.photoURL(p.PhotoReference))
	}
	for _, r := range det.Result.Reviews {
		if t := strings.TrimSpace(r.Text); t != "" {
			info.Reviews = append(info.Reviews, t)
		}
	}
	return info, nil
}

// photoURL expands a photo reference into a fetchable URL via the provider's
// templated photo endpoint.
func (c *Client) photoURL(ref string) string {
	return fmt.Sprintf("%s/photo?maxwidth=%d&photo_reference=%s&key=%s",
		c.base, photoMaxWidth, url.QueryEscape(ref), c.key)
}

// get performs one rate-limited GET with a single retry on transient 5xx/429.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("places: remote %d", resp.StatusCode)
			if attempt == 0 && sleepCtx(ctx, 300*time.Millisecond) {
				continue
			}
			return lastErr
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("places: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("places: decode %s: %w", endpoint, err)
		}
		return nil
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
