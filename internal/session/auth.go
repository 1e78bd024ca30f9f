package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/crit308/tutorcore/internal/tutor"
)

// Authenticator validates a bearer token on every HTTP/WebSocket open and
// returns the authenticated user id (§6 "Authentication"). The concrete
// validator (JWKS fetch, session cookie exchange, ...) lives outside this
// spec's scope; only the interface is modeled here.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (userID string, err error)
}

// ErrMissingBearer marks a request with no (or malformed) Authorization
// header.
var ErrMissingBearer = errors.New("session: missing bearer token")

// bearerToken extracts the token from a standard "Authorization: Bearer
// <token>" header.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) || len(h) <= len(prefix) {
		return "", ErrMissingBearer
	}
	return h[len(prefix):], nil
}

// authenticate resolves the request's bearer token via auth, wrapping any
// failure in tutor.ErrAuthorization so callers can close with the §7
// authorization-error code uniformly.
func authenticate(ctx context.Context, auth Authenticator, r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tutor.ErrAuthorization, err)
	}
	userID, err := auth.Authenticate(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tutor.ErrAuthorization, err)
	}
	return userID, nil
}
