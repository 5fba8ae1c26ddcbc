// Package directory is the HTTP client for the remote directory's external
// contacts API.
package directory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/internal/transport"
	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/mirror"
)

// TokenSource supplies access tokens.
type TokenSource interface {
	AcquireCredential(ctx context.Context) (auth.Token, error)
}

// Client talks to the external contacts endpoints.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *transport.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// New creates a directory client rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if baseURL == "" {
		baseURL = constants.DefaultDirectoryURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http: transport.New(&transport.BearerAuth{},
			transport.WithHTTPClient(o.httpClient),
			transport.WithTimeout(o.timeout),
			transport.WithService(constants.DirectoryService)),
	}
}

// Compile-time interface check to ensure proper implementation.
var _ mirror.Lister = (*Client)(nil)

// listResponse is one page of the listing endpoint.
type listResponse struct {
	ExternalContacts []contacts.Contact `json:"external_contacts"`
	NextPageToken    string             `json:"next_page_token"`
	PageSize         int                `json:"page_size"`
	TotalRecords     int                `json:"total_records"`
}

// ListDirectory implements mirror.Lister.
func (c *Client) ListDirectory(ctx context.Context, pageToken string, pageSize int) (*mirror.Page, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("next_page_token", pageToken)
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, c.endpoint()+"?"+q.Encode(), token)
	if err != nil {
		return nil, err
	}

	var page listResponse
	if err := c.http.DecodeResponse(resp, &page, http.StatusOK); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Int("returned", len(page.ExternalContacts)).
		Int("page_size", page.PageSize).
		Bool("more", page.NextPageToken != "").
		Msg("Listed directory page")

	for i := range page.ExternalContacts {
		page.ExternalContacts[i].PhoneNumbers = contacts.NormalizePhones(page.ExternalContacts[i].PhoneNumbers)
	}

	return &mirror.Page{
		Contacts:      page.ExternalContacts,
		NextPageToken: page.NextPageToken,
		TotalRecords:  page.TotalRecords,
	}, nil
}

// createResponse is the body returned by a create, when there is one.
type createResponse struct {
	ExternalContactID string `json:"external_contact_id"`
}

// CreateDirectoryEntry creates c and returns the directory's reference for
// it. The reference is empty when the directory does not return one.
func (c *Client) CreateDirectoryEntry(ctx context.Context, contact contacts.Contact) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.http.SendJSON(ctx, http.MethodPost, c.endpoint(), toPayload(contact), token)
	if err != nil {
		return "", err
	}

	var created createResponse
	if err := c.http.DecodeResponse(resp, &created, http.StatusCreated); err != nil {
		return "", err
	}
	return created.ExternalContactID, nil
}

// UpdateDirectoryEntry overwrites the entry ref with contact.
func (c *Client) UpdateDirectoryEntry(ctx context.Context, ref string, contact contacts.Contact) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.SendJSON(ctx, http.MethodPatch, c.entry(ref), toPayload(contact), token)
	if err != nil {
		return err
	}
	return c.http.DecodeResponse(resp, nil, http.StatusNoContent, http.StatusOK)
}

// DeleteDirectoryEntry removes the entry ref.
func (c *Client) DeleteDirectoryEntry(ctx context.Context, ref string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.Send(ctx, http.MethodDelete, c.entry(ref), nil, token)
	if err != nil {
		return err
	}
	return c.http.DecodeResponse(resp, nil, http.StatusNoContent, http.StatusOK)
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", &errors.AuthenticationError{
			Service: constants.DirectoryService,
			Message: "no credential provider configured",
		}
	}
	tok, err := c.tokens.AcquireCredential(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) endpoint() string {
	return c.baseURL + constants.ExternalContactsPath
}

func (c *Client) entry(ref string) string {
	return c.endpoint() + "/" + url.PathEscape(ref)
}
