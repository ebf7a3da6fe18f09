// Package upstream talks to the task-tracking API and the LMS.
//
// Both services authenticate with bearer tokens obtained by a staff login
// and stored server-side; every call reads the current token from a
// TokenStore so a re-login takes effect without a restart.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Service names under which tokens are stored.
const (
	ServiceTask = "jira"
	ServiceLMS  = "lms"
)

// ErrMissingToken is returned when no token has been stored for a service.
var ErrMissingToken = errors.New("missing auth token")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Service string
	Status  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
}

// TokenStore reads and writes upstream bearer tokens.
type TokenStore interface {
	Token(ctx context.Context, service string) (string, error)
	SaveToken(ctx context.Context, service, token string) error
}

// Options configure a client.
type Options struct {
	HTTPClient *http.Client
	Retries    int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
	// MaxBody caps downloaded response bodies.
	MaxBody int64
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 250 * time.Millisecond
	}
	if o.MaxBody <= 0 {
		o.MaxBody = 20 << 20
	}
	return o
}

type client struct {
	service string
	base    *url.URL
	tokens  TokenStore
	opts    Options
}

func newClient(service, baseURL string, tokens TokenStore, opts Options) (*client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", service, baseURL)
	}
	return &client{service: service, base: u, tokens: tokens, opts: opts.withDefaults()}, nil
}

func (c *client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("%s: %w", c.service, ErrMissingToken)
	}
	tok, err := c.tokens.Token(ctx, c.service)
	if err != nil {
		return "", fmt.Errorf("%s: read token: %w", c.service, err)
	}
	if tok == "" {
		return "", fmt.Errorf("%s: %w", c.service, ErrMissingToken)
	}
	return tok, nil
}

// get performs a GET with retries on network errors and 5xx responses and
// returns the body.
func (c *client) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(uint64(c.opts.Retries), retry.NewExponential(c.opts.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("upstream request failed, retrying", "service", c.service, "error", err)
			return retry.RetryableError(fmt.Errorf("%s: %w", c.service, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			serr := &StatusError{Service: c.service, Status: resp.StatusCode}
			if resp.StatusCode >= 500 {
				return retry.RetryableError(serr)
			}
			return serr
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBody+1))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s: read body: %w", c.service, err))
		}
		if int64(len(body)) > c.opts.MaxBody {
			return fmt.Errorf("%s: response exceeds %d bytes", c.service, c.opts.MaxBody)
		}
		return nil
	})
	return body, err
}

func (c *client) getJSON(ctx context.Context, rawURL string, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	header.Set("Accept", "application/json")

	body, err := c.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}
