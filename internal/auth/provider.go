package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/contactsync/internal/transport"
	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
)

// grantType is the Server-to-Server OAuth grant.
const grantType = "account_credentials"

// Provider obtains access tokens with the account credentials grant and
// caches them until shortly before they expire.
type Provider struct {
	creds  Credentials
	client *transport.Client
	leeway time.Duration
	now    func() time.Time

	mu    sync.Mutex
	token Token
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client used for the token endpoint.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.client = transport.New(&transport.BasicAuth{Username: p.creds.ClientID},
			transport.WithHTTPClient(hc), transport.WithService(constants.DirectoryService+" oauth"))
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithLeeway sets how long before expiry a cached token is replaced.
func WithLeeway(d time.Duration) Option {
	return func(p *Provider) {
		if d >= 0 {
			p.leeway = d
		}
	}
}

// NewProvider creates a token provider.
func NewProvider(creds Credentials, opts ...Option) *Provider {
	if creds.TokenURL == "" {
		creds.TokenURL = constants.DefaultTokenURL
	}
	p := &Provider{
		creds:  creds,
		client: transport.New(&transport.BasicAuth{Username: creds.ClientID}, transport.WithService(constants.DirectoryService+" oauth")),
		leeway: constants.TokenExpiryLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AcquireCredential returns a valid access token, fetching a new one when
// the cached token is missing or about to expire. Any failure is an
// AuthenticationError.
func (p *Provider) AcquireCredential(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid(p.now(), p.leeway) {
		return p.token, nil
	}

	if status := Check(p.creds); status.State != StateConfigured {
		return Token{}, p.authError(status.Summary, nil)
	}

	token, err := p.fetch(ctx)
	if err != nil {
		return Token{}, err
	}
	p.token = token

	logging.FromContext(ctx).Debug().
		Time("expires_at", token.ExpiresAt).
		Str("scope", token.Scope).
		Msg("Acquired access token")

	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = Token{}
}

func (p *Provider) fetch(ctx context.Context) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("account_id", p.creds.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, p.authError("invalid token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issued := p.now()
	resp, err := p.client.DoWithContext(ctx, req, p.creds.ClientSecret)
	if err != nil {
		return Token{}, p.authError("token endpoint unreachable", err)
	}

	var token Token
	if err := p.client.DecodeResponse(resp, &token); err != nil {
		msg := "token request rejected"
		var apiErr *errors.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return Token{}, p.authError(msg, err)
	}
	if token.AccessToken == "" {
		return Token{}, p.authError("token response carried no access_token", nil)
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = issued.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return token, nil
}

func (p *Provider) authError(msg string, err error) error {
	return &errors.AuthenticationError{
		Service: constants.DirectoryService,
		Method:  grantType,
		Message: msg,
		Err:     err,
	}
}
