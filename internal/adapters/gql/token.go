package gql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// loginFunc performs the login mutation and returns the raw JWT.
type loginFunc func(ctx context.Context) (string, error)

// TokenSource caches the backend bearer token and refreshes it when its
// remaining lifetime drops below the configured margin. The margin must
// exceed login latency plus clock skew so a handed-out token is still valid
// when it hits the wire.
type TokenSource struct {
	login  loginFunc
	margin time.Duration
	log    zerolog.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a token source around the given login call.
func NewTokenSource(login loginFunc, margin time.Duration, baseLogger *zerolog.Logger) *TokenSource {
	return &TokenSource{
		login:  login,
		margin: margin,
		log:    baseLogger.With().Str("component", "token_source").Logger(),
	}
}

// Token returns a valid bearer token, refreshing it first if stale. The
// common path is a read-locked cache hit with no network call.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.RLock()
	if ts.token != "" && time.Until(ts.expiresAt) > ts.margin {
		tok := ts.token
		ts.mu.RUnlock()
		return tok, nil
	}
	ts.mu.RUnlock()
	return ts.refresh(ctx)
}

// refresh logs in outside any lock so concurrent readers are never blocked
// on network latency. Callers that race here each perform their own login;
// later writers overwrite an equally valid token, which is benign.
func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	token, err := ts.login(ctx)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}

	expiresAt, err := tokenExpiry(token)
	if err != nil {
		// Cache stays untouched; the next caller retries the refresh.
		return "", err
	}

	ts.mu.Lock()
	ts.token = token
	ts.expiresAt = expiresAt
	ts.mu.Unlock()

	ts.log.Info().Time("expires_at", expiresAt).Msg("Installed fresh backend token")
	return token, nil
}

// tokenExpiry extracts the exp claim. The signature is the backend's
// concern; we only need the embedded expiry, so the token is parsed
// unverified.
func tokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token expiry: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token carries no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
