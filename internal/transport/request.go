package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
)

// SendJSON encodes body as JSON and performs the request.
func (c *Client) SendJSON(ctx context.Context, method, url string, body any, credential string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.Send(ctx, method, url, reader, credential)
}

// DecodeResponse checks the status against expected (200 when none given)
// and decodes a JSON body into target. A nil target or an empty body leaves
// target untouched.
// Any other status becomes an APIError carrying the service's own message.
func (c *Client) DecodeResponse(resp *http.Response, target any, expected ...int) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}

	if !slices.Contains(expected, resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodySize))
		apiErr := errors.NewAPIError(c.service, resp.StatusCode, ErrorMessage(body))
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.Redacted()
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}

// ErrorMessage extracts a human-readable message from an error body. JSON
// bodies are searched for "message", "reason" and "error_description";
// anything else is returned trimmed.
func ErrorMessage(body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		Reason           string `json:"reason"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Reason, payload.ErrorDescription, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(body))
}
