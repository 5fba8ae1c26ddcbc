package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// Check inspects credentials locally. No network calls are made.
func Check(c Credentials) *Status {
	var missing []string
	if c.AccountID == "" {
		missing = append(missing, "auth.account_id")
	}
	if c.ClientID == "" {
		missing = append(missing, "auth.client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "auth.client_secret")
	}
	if len(missing) > 0 {
		return &Status{
			State:   StateMissing,
			Summary: fmt.Sprintf("Set %s", strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	u, err := url.Parse(c.TokenURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &Status{
			State:   StateInvalid,
			Summary: fmt.Sprintf("Token URL %q is not an absolute URL", c.TokenURL),
		}
	}

	for _, v := range []string{c.AccountID, c.ClientID, c.ClientSecret} {
		if strings.TrimSpace(v) != v || strings.ContainsAny(v, " \t\r\n") {
			return &Status{
				State:   StateInvalid,
				Summary: "Credentials contain whitespace",
			}
		}
	}

	return &Status{
		State:   StateConfigured,
		Summary: fmt.Sprintf("Credentials configured (client %s)", redact(c.ClientID)),
	}
}

// redact keeps the first four characters of an identifier.
func redact(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
