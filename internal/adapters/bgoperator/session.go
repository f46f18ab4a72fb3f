package bgoperator

import "sync"

// Cookie names issued by the operator's login endpoint.
const (
	cookieSession = "A1" // session id, stable for the session lifetime
	cookieRotor   = "Z1" // rotating token, reissued on every call
	cookieLocale  = "L"  // locale token
)

// Session holds the three operator cookies. The rotating token is mutated
// after successful calls, so all access goes through the mutex: every call
// attaches whatever value is current at the moment it builds headers.
type Session struct {
	mu    sync.Mutex
	a1, l string
	z1    string
}

// NewSession builds a session from the three login cookies. All three must
// be non-empty; the authenticator enforces that.
func NewSession(a1, z1, l string) *Session {
	return &Session{a1: a1, z1: z1, l: l}
}

// CookieHeader renders the Cookie header value from a consistent snapshot.
func (s *Session) CookieHeader() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cookieSession + "=" + s.a1 + "; " + cookieRotor + "=" + s.z1 + "; " + cookieLocale + "=" + s.l
}

// Rotate installs a reissued rotating token. Every holder of this session
// observes the new value on its next call.
func (s *Session) Rotate(z1 string) {
	if z1 == "" {
		return
	}
	s.mu.Lock()
	s.z1 = z1
	s.mu.Unlock()
}

// RotatingToken reports the current rotating token (used in tests).
func (s *Session) RotatingToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.z1
}
