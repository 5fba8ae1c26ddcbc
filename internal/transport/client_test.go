package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/pkg/errors"
)

func TestSendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Alice"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"ref-1"}`)
	}))
	defer srv.Close()

	c := New(&BearerAuth{}, WithService("directory"))
	resp, err := c.SendJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"name": "Alice"}, "tok")
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.DecodeResponse(resp, &out, http.StatusCreated))
	assert.Equal(t, "ref-1", out.ID)
}

func TestDecodeResponseErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		rateLimited bool
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"code":300,"message":"Phone number is invalid"}`, wantMessage: "Phone number is invalid"},
		{name: "oauth error", status: http.StatusBadRequest, body: `{"reason":"Invalid client_id or client_secret","error":"invalid_client"}`, wantMessage: "Invalid client_id or client_secret"},
		{name: "plain text", status: http.StatusBadGateway, body: " upstream down \n", wantMessage: "upstream down"},
		{name: "empty body", status: http.StatusTooManyRequests, body: "", wantMessage: "Too Many Requests", rateLimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(nil, WithService("directory"))
			resp, err := c.Get(context.Background(), srv.URL+"/phone/external_contacts", "")
			require.NoError(t, err)

			err = c.DecodeResponse(resp, nil, http.StatusOK)
			require.Error(t, err)

			var apiErr *errors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, "directory", apiErr.Service)
			assert.True(t, strings.HasSuffix(apiErr.Endpoint, "/phone/external_contacts"))
			assert.Equal(t, tt.rateLimited, errors.IsRateLimited(err))
		})
	}
}

func TestDecodeResponseNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(&BearerAuth{})
	resp, err := c.Send(context.Background(), http.MethodDelete, srv.URL, nil, "tok")
	require.NoError(t, err)
	assert.NoError(t, c.DecodeResponse(resp, nil, http.StatusNoContent))
}

func TestDecodeResponseBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	c := New(nil)
	resp, err := c.Get(context.Background(), srv.URL, "")
	require.NoError(t, err)

	var out map[string]any
	err = c.DecodeResponse(resp, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestDoWithContextTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(nil, WithService("directory"))
	_, err := c.Get(context.Background(), url, "")
	require.Error(t, err)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for name, opts := range map[string][]Option{
		"timeout after client":  {WithHTTPClient(shared), WithTimeout(5 * time.Second)},
		"timeout before client": {WithTimeout(5 * time.Second), WithHTTPClient(shared)},
	} {
		t.Run(name, func(t *testing.T) {
			c := New(nil, opts...)
			assert.Equal(t, 5*time.Second, c.http.Timeout)
			assert.NotSame(t, shared, c.http)
			assert.Equal(t, time.Minute, shared.Timeout)
		})
	}
}

func TestWithHTTPClientKeptWithoutTimeout(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := New(nil, WithHTTPClient(shared))
	assert.Same(t, shared, c.http)
}
