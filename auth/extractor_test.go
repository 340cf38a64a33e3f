package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTokenExtractor(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Credentials
	}{
		{
			name:    "camelCase fields",
			payload: `{"accessToken":"a1","refreshToken":"r1","tokenType":"Bearer","expiresIn":3600}`,
			want: Credentials{
				AccessToken:  "a1",
				RefreshToken: "r1",
				TokenType:    "Bearer",
				ExpiresIn:    time.Hour,
			},
		},
		{
			name:    "snake_case fields",
			payload: `{"access_token":"a2","refresh_token":"r2","token_type":"MAC","expires_in":60}`,
			want: Credentials{
				AccessToken:  "a2",
				RefreshToken: "r2",
				TokenType:    "MAC",
				ExpiresIn:    time.Minute,
			},
		},
		{
			name:    "data envelope",
			payload: `{"status":"ok","data":{"accessToken":"wrapped","refreshToken":"r3"}}`,
			want: Credentials{
				AccessToken:  "wrapped",
				RefreshToken: "r3",
			},
		},
		{
			name:    "access token only",
			payload: `{"accessToken":"bare"}`,
			want:    Credentials{AccessToken: "bare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := DefaultTokenExtractor([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *creds)
		})
	}
}

func TestDefaultTokenExtractorRejectsPayloadsWithoutToken(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"accessToken":""}`,
		`{"refreshToken":"refresh-only"}`,
		`{"data":{"user":"no tokens here"}}`,
		`not json at all`,
	}
	for _, payload := range payloads {
		_, err := DefaultTokenExtractor([]byte(payload))
		assert.ErrorIs(t, err, ErrNoAccessToken, "payload: %s", payload)
	}
}

func TestCredentialsClone(t *testing.T) {
	var nilCreds *Credentials
	assert.Nil(t, nilCreds.Clone())

	original := &Credentials{AccessToken: "a", RefreshToken: "r"}
	clone := original.Clone()
	clone.AccessToken = "mutated"
	assert.Equal(t, "a", original.AccessToken)
}

func TestCredentialsScheme(t *testing.T) {
	assert.Equal(t, "Bearer", (&Credentials{AccessToken: "a"}).Scheme())
	assert.Equal(t, "DPoP", (&Credentials{AccessToken: "a", TokenType: "DPoP"}).Scheme())
}
