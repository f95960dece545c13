// Package session owns the access/refresh token pair of the authenticated
// client. The Store is the only writer of the token keys in storage, and
// AuthHeaders is the single place bearer and device headers are assembled:
// no call site builds an Authorization header on its own.
package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/identikit/identikit/device"
	"github.com/identikit/identikit/storage"
)

const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"

	headerDeviceID   = "Device-ID"
	headerDeviceName = "Device-Name"
)

// Tokens is the bearer pair returned by the auth API.
type Tokens struct {
	Access  string
	Refresh string
}

// Store persists and serves the current session. At most one session is live
// per installation; an absent access token is the canonical logged-out state.
type Store struct {
	backend storage.Backend
	device  *device.Identity
}

// NewStore wires a Store over the installation's storage backend and device
// identity.
func NewStore(backend storage.Backend, dev *device.Identity) *Store {
	return &Store{backend: backend, device: dev}
}

// Set stores both tokens, or clears them when tokens is nil. Clearing an
// already-empty store is a no-op, which keeps logout idempotent.
func (s *Store) Set(ctx context.Context, tokens *Tokens) error {
	if tokens == nil {
		if err := s.backend.Delete(ctx, accessTokenKey); err != nil {
			return err
		}
		return s.backend.Delete(ctx, refreshTokenKey)
	}
	if err := s.backend.Set(ctx, accessTokenKey, tokens.Access); err != nil {
		return err
	}
	return s.backend.Set(ctx, refreshTokenKey, tokens.Refresh)
}

// AccessToken returns the stored access token, or "" when logged out.
// Storage misses are not errors here; only backend failures propagate.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.read(ctx, accessTokenKey)
}

// RefreshToken returns the stored refresh token, or "" when logged out.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.read(ctx, refreshTokenKey)
}

// IsAuthenticated reports whether an access token is present. Server-side
// validity is discovered lazily on the next rejected request.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	tok, err := s.AccessToken(ctx)
	return err == nil && tok != ""
}

// Device returns the installation's device record, creating it on first use.
func (s *Store) Device(ctx context.Context) (device.Record, error) {
	return s.device.GetOrCreate(ctx)
}

// AuthHeaders builds the headers every outbound request must carry:
// Authorization (when a session exists) plus Device-ID and Device-Name.
// A missing token simply omits the Authorization header.
func (s *Store) AuthHeaders(ctx context.Context) (http.Header, error) {
	headers := http.Header{}

	rec, err := s.device.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	headers.Set(headerDeviceID, rec.DeviceID)
	headers.Set(headerDeviceName, rec.DeviceLabel)

	tok, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if tok != "" {
		headers.Set("Authorization", "Bearer "+tok)
	}
	return headers, nil
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	val, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}
