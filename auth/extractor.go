package auth

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// TokenExtractor pulls credentials out of a token-endpoint response payload.
type TokenExtractor func(payload []byte) (*Credentials, error)

// ErrNoAccessToken is returned when the payload carries no recognizable
// access token.
var ErrNoAccessToken = errors.New("auth: no access token in response payload")

// DefaultTokenExtractor reads the common token-endpoint field spellings:
// accessToken/access_token with sibling refreshToken/refresh_token,
// tokenType/token_type, and expiresIn/expires_in (seconds). It also descends
// into a top-level "data" envelope when the fields are nested there.
func DefaultTokenExtractor(payload []byte) (*Credentials, error) {
	root := gjson.ParseBytes(payload)
	if data := root.Get("data"); data.Exists() && firstOf(data, "accessToken", "access_token").Exists() {
		root = data
	}

	access := firstOf(root, "accessToken", "access_token")
	if !access.Exists() || access.String() == "" {
		return nil, ErrNoAccessToken
	}

	creds := &Credentials{
		AccessToken:  access.String(),
		RefreshToken: firstOf(root, "refreshToken", "refresh_token").String(),
		TokenType:    firstOf(root, "tokenType", "token_type").String(),
	}
	if expiresIn := firstOf(root, "expiresIn", "expires_in"); expiresIn.Exists() {
		creds.ExpiresIn = time.Duration(expiresIn.Int()) * time.Second
	}
	return creds, nil
}

func firstOf(value gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if result := value.Get(path); result.Exists() {
			return result
		}
	}
	return gjson.Result{}
}
