package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"globus_tours/internal/adapters/bgoperator"
)

// OperatorGateway owns the upstream session on behalf of the orchestrators.
// It authenticates lazily, shares one rotating session across all calls and
// re-authenticates exactly once when the operator reports the session
// expired. Authentication and configuration failures pass through as hard
// errors.
type OperatorGateway struct {
	auth    *bgoperator.Authenticator
	timeout time.Duration

	mu     sync.Mutex
	client *bgoperator.Client
}

func NewOperatorGateway(auth *bgoperator.Authenticator, timeout time.Duration) *OperatorGateway {
	return &OperatorGateway{auth: auth, timeout: timeout}
}

// GetJSON implements bgoperator.JSONGetter.
func (g *OperatorGateway) GetJSON(ctx context.Context, rawURL string, out any) error {
	cl, err := g.ensure(ctx)
	if err != nil {
		return err
	}

	err = cl.GetJSON(ctx, rawURL, out)
	if !errors.Is(err, bgoperator.ErrSessionExpired) {
		return err
	}

	log.Warn().Str("url", rawURL).Msg("operator session expired, re-authenticating")
	g.drop(cl)
	cl, err = g.ensure(ctx)
	if err != nil {
		return err
	}
	return cl.GetJSON(ctx, rawURL, out)
}

// ensure returns the current client, authenticating if none exists.
func (g *OperatorGateway) ensure(ctx context.Context) (*bgoperator.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	sess, err := g.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	g.client = bgoperator.NewClient(sess, g.timeout)
	return g.client, nil
}

// drop discards a client known to carry a dead session, unless another
// caller already replaced it.
func (g *OperatorGateway) drop(cl *bgoperator.Client) {
	g.mu.Lock()
	if g.client == cl {
		g.client = nil
	}
	g.mu.Unlock()
}
