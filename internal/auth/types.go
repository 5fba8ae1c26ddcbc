// Package auth acquires and checks the credentials used to call the directory.
package auth

import "time"

// State represents how complete the configured credentials are.
type State int

const (
	// StateConfigured means every required credential is set.
	StateConfigured State = iota
	// StateMissing means required credentials are missing.
	StateMissing
	// StateInvalid means credentials are set but malformed.
	StateInvalid
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateMissing:
		return "missing"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Status represents credential status with details.
type Status struct {
	State   State
	Summary string   // Brief one-line summary
	Missing []string // Config keys that are not set
}

// Credentials are the Server-to-Server OAuth app settings.
type Credentials struct {
	TokenURL     string
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Token is an access token for the directory API.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Scope       string    `json:"scope"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// Valid reports whether the token can still be used at now, keeping leeway
// in reserve so a token does not expire mid-request.
func (t Token) Valid(now time.Time, leeway time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(leeway).Before(t.ExpiresAt)
}
