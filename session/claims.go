package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by Claims when no access token is stored.
var ErrNoSession = errors.New("session: no access token")

// Claims is the client-visible view of the access token payload. The token is
// decoded without signature verification: the server is the authority, the
// client only needs expiry and subject for display and proactive refresh.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Claims decodes the stored access token. An unparseable token is reported as
// an error rather than treated as logged out; the stored pair may still be
// usable for refresh.
func (s *Store) Claims(ctx context.Context) (*Claims, error) {
	tok, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrNoSession
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	out := &Claims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

// ExpiresWithin reports whether the stored access token expires inside the
// given window. Tokens without an exp claim never report as expiring.
func (s *Store) ExpiresWithin(ctx context.Context, window time.Duration) bool {
	claims, err := s.Claims(ctx)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(claims.ExpiresAt) < window
}
