package bgoperator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrMissingCredentials means login or password is absent from the
	// environment. Fatal for the operator, never retried.
	ErrMissingCredentials = errors.New("bgoperator: login and password are required")

	// ErrAuthProtocol means the login endpoint answered with a non-success
	// status or omitted one of the required cookies.
	ErrAuthProtocol = errors.New("bgoperator: malformed authentication response")
)

// Authenticator logs in to the operator and extracts the session cookies.
// It performs no retries; the caller decides whether to retry a whole
// operation after a failure.
type Authenticator struct {
	authURL  string
	login    string
	password string
	hc       *http.Client
}

func NewAuthenticator(authURL, login, password string) *Authenticator {
	return &Authenticator{
		authURL:  authURL,
		login:    login,
		password: password,
		hc:       &http.Client{Timeout: 20 * time.Second},
	}
}

// Authenticate posts the form-encoded credentials and builds a Session from
// the A1/Z1/L response cookies. A response missing any of the three fails
// with ErrAuthProtocol.
func (a *Authenticator) Authenticate(ctx context.Context) (*Session, error) {
	if a.login == "" || a.password == "" {
		return nil, ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("login", a.login)
	form.Set("pwd", a.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgoperator: login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: login status %d: %s", ErrAuthProtocol, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var a1, z1, l string
	for _, c := range resp.Cookies() {
		switch c.Name {
		case cookieSession:
			a1 = c.Value
		case cookieRotor:
			z1 = c.Value
		case cookieLocale:
			l = c.Value
		}
	}
	if a1 == "" || z1 == "" || l == "" {
		return nil, fmt.Errorf("%w: missing cookies (A1=%t Z1=%t L=%t)", ErrAuthProtocol, a1 != "", z1 != "", l != "")
	}

	return NewSession(a1, z1, l), nil
}
