package credential

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

// Bound is an opaque identity/session handle. The adapter copies ProjectID and SessionID
// verbatim into the upstream envelope and never mutates or re-selects it.
type Bound struct {
	ProjectID string
	SessionID string
	RawToken  string
}

// Source supplies a Bound credential per request.
type Source interface {
	Credential(ctx context.Context) (Bound, error)
}

// ErrNoToken is returned when the token source produced an empty access token.
var ErrNoToken = errors.New("credential: token source returned an empty access token")

// TokenSource binds an oauth2.TokenSource to a fixed project and session.
// It is safe for concurrent use if the underlying token source is.
type TokenSource struct {
	projectID string
	sessionID string
	tokens    oauth2.TokenSource
}

// Compile-time check that TokenSource implements Source.
var _ Source = (*TokenSource)(nil)

// NewTokenSource creates a Source backed by tokens. An empty sessionID is replaced by a
// freshly generated one.
func NewTokenSource(projectID, sessionID string, tokens oauth2.TokenSource) *TokenSource {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return &TokenSource{
		projectID: projectID,
		sessionID: sessionID,
		tokens:    tokens,
	}
}

// Credential returns the current binding. Context cancellation is checked before the
// token source is consulted because oauth2.TokenSource has no context parameter.
func (s *TokenSource) Credential(ctx context.Context) (Bound, error) {
	if err := ctx.Err(); err != nil {
		return Bound{}, err
	}

	token, err := s.tokens.Token()
	if err != nil {
		return Bound{}, fmt.Errorf("credential: obtain token: %w", err)
	}
	if token.AccessToken == "" {
		return Bound{}, ErrNoToken
	}

	return Bound{
		ProjectID: s.projectID,
		SessionID: s.sessionID,
		RawToken:  token.AccessToken,
	}, nil
}

// NewSessionID returns a session id in the upstream's "-<decimal>" format.
func NewSessionID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9_000_000_000_000_000_000))
	if err != nil {
		panic(err)
	}
	return "-" + strconv.FormatInt(n.Int64(), 10)
}

// WithTransport returns a context that makes oauth2 token refreshes use transport.
func WithTransport(ctx context.Context, transport http.RoundTripper) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport})
}
