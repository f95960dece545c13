// Package gateway is the typed client for the remote auth API. Every
// operation returns either its payload or a classified *Error; expected
// failures never surface as raw transport errors. All requests route their
// headers through session.Store.AuthHeaders.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/identikit/identikit/session"
)

const defaultTimeout = 15 * time.Second

// Client drives the remote auth endpoints. Construct with NewClient; safe for
// concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Store
	log      zerolog.Logger
}

// Option adjusts a Client during construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a structured logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a gateway over the given API base URL and session store.
func NewClient(baseURL string, sessions *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		sessions: sessions,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions exposes the session store the gateway writes through.
func (c *Client) Sessions() *session.Store { return c.sessions }

func (c *Client) post(ctx context.Context, path string, body any, out *authResponse) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out *authResponse) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return wrapError(KindUnexpected, "encode request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return wrapError(KindUnexpected, "build request", err)
	}

	headers, err := c.sessions.AuthHeaders(ctx)
	if err != nil {
		return wrapError(KindUnexpected, "auth headers", err)
	}
	req.Header = headers
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("transport failure")
		return wrapError(KindNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return wrapError(KindNetwork, "read response", err)
	}

	if resp.StatusCode >= 400 {
		return c.classifyFailure(path, resp.StatusCode, payload)
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			c.log.Error().Err(err).Str("path", path).Int("status", resp.StatusCode).
				Msg("malformed success response")
			return wrapError(KindUnexpected, "malformed response", err)
		}
	}
	c.log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("auth api call")
	return nil
}

// classifyFailure normalizes an error status into the taxonomy. Unknown
// shapes fall back to the server message with a status-derived kind.
func (c *Client) classifyFailure(path string, status int, payload []byte) error {
	var body errorResponse
	_ = json.Unmarshal(payload, &body)
	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = fmt.Sprintf("server returned status %d", status)
	}

	c.log.Debug().Str("path", path).Int("status", status).Str("error", message).
		Msg("auth api rejection")

	switch {
	case status == http.StatusConflict:
		return ErrAccountExists
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newError(KindAuth, message)
	case status == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(message), "exist") {
			return ErrAccountExists
		}
		return newError(KindAuth, message)
	case status >= 500:
		return newError(KindNetwork, message)
	default:
		return newError(KindUnexpected, message)
	}
}

// isTimeout reports whether err is a deadline or cancellation, which the
// facial flow treats as a biometric timeout rather than a generic failure.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "Client.Timeout")
}
