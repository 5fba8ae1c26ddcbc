package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http    *http.Client
	auth    Authenticator
	service string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient
// is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithService names the remote service in errors.
func WithService(name string) Option {
	return func(c *Client) {
		c.service = name
	}
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		service: "remote",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// Service returns the name used in errors.
func (c *Client) Service() string {
	return c.service
}

// DoWithContext performs an HTTP request with authentication applied and context support.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request, credential string) (*http.Response, error) {
	if credential != "" {
		c.auth.Apply(req, credential)
	}

	// Set common headers
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("Content-Type") == "" &&
		(req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &errors.APIError{
			Service:  c.service,
			Endpoint: req.URL.Redacted(),
			Message:  err.Error(),
			Err:      err,
		}
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url, credential string) (*http.Response, error) {
	return c.Send(ctx, http.MethodGet, url, nil, credential)
}

// Send builds and performs a request with a raw body.
func (c *Client) Send(ctx context.Context, method, url string, body io.Reader, credential string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+url, err)
	}
	return c.DoWithContext(ctx, req, credential)
}
