// Package auth owns the credential lifecycle for the fetch client: token
// storage, expiry tracking, single-flight refresh, and the request
// interceptor that injects the Authorization header.
package auth

import (
	"encoding/json"
	"time"
)

// DefaultTokenType is the Authorization scheme used when the stored
// credentials carry no explicit type.
const DefaultTokenType = "Bearer"

// Credentials is the token set owned by the Coordinator. ExpiresAt is
// absolute; a zero ExpiresAt means the access token never expires.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`

	// ExpiresIn is a relative lifetime supplied by token endpoints. SetTokens
	// converts it to an absolute ExpiresAt; it is not persisted.
	ExpiresIn time.Duration `json:"-"`
}

// Clone returns an independent copy.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

// Scheme returns the Authorization scheme for these credentials.
func (c *Credentials) Scheme() string {
	if c.TokenType != "" {
		return c.TokenType
	}
	return DefaultTokenType
}

func (c *Credentials) marshal() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalCredentials(value string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}
