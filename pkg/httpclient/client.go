// Package httpclient wraps net/http with the timeouts, redirect limits,
// default headers and body caps used when talking to supplier directories.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// DefaultMaxBodyBytes bounds how much of a response body ReadBody keeps.
const DefaultMaxBodyBytes = 8 << 20

// ErrBodyTooLarge is returned by ReadBody when the body exceeds the cap.
var ErrBodyTooLarge = errors.New("httpclient: response body too large")

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// Headers are set on every request that does not already carry them.
	Headers http.Header
	// MaxBodyBytes caps ReadBody. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Transport overrides the round tripper, e.g. for uTLS fingerprinting.
	Transport http.RoundTripper
}

// Client wraps http.Client.
type Client struct {
	*http.Client
	headers http.Header
	maxBody int64
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		limit := cfg.MaxRedirects
		if limit == 0 {
			limit = 10
		}
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("httpclient: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{
		Client:  c,
		headers: cfg.Headers.Clone(),
		maxBody: cfg.MaxBodyBytes,
	}, nil
}

// Do executes req under ctx after applying the default headers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	r := req.Clone(ctx)
	for k, vs := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header[k] = append([]string(nil), vs...)
		}
	}

	resp, err := c.Client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// ReadBody reads at most the configured cap from resp.Body. When the body is
// longer, the truncated prefix is returned along with ErrBodyTooLarge.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return body, fmt.Errorf("httpclient: read body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return body[:c.maxBody], ErrBodyTooLarge
	}
	return body, nil
}
