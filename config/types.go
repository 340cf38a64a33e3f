// Package config loads and validates the fetch-client configuration from
// defaults, an optional YAML file, and environment variables.
package config

import (
	"time"
)

// Config is the full configuration surface of the client.
type Config struct {
	Client    ClientConfig    `koanf:"client" json:"client" yaml:"client"`
	Retry     RetryConfig     `koanf:"retry" json:"retry" yaml:"retry"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`
	Auth      AuthConfig      `koanf:"auth" json:"auth" yaml:"auth"`
	SSL       SSLConfig       `koanf:"ssl" json:"ssl" yaml:"ssl"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	Trace     TraceConfig     `koanf:"trace" json:"trace" yaml:"trace"`
}

// ClientConfig holds the base request settings.
type ClientConfig struct {
	BaseURL string            `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"omitempty,url"`
	Timeout time.Duration     `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gte=0"`
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
}

// RetryConfig holds the retry policy settings.
type RetryConfig struct {
	MaxRetries    int           `koanf:"maxretries" json:"maxretries" yaml:"maxretries" validate:"gte=0"`
	BaseDelay     time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay" validate:"gte=0"`
	MaxDelay      time.Duration `koanf:"maxdelay" json:"maxdelay" yaml:"maxdelay" validate:"gte=0"`
	BackoffFactor float64       `koanf:"backofffactor" json:"backofffactor" yaml:"backofffactor" validate:"omitempty,gt=1"`
	Jitter        bool          `koanf:"jitter" json:"jitter" yaml:"jitter"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal"`
	Pretty          bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
	Payloads        bool   `koanf:"payloads" json:"payloads" yaml:"payloads"`
	MaxPayloadBytes int    `koanf:"maxpayloadbytes" json:"maxpayloadbytes" yaml:"maxpayloadbytes" validate:"gte=0"`
}

// Storage strategy constants for AuthConfig.Storage.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
)

// AuthConfig holds the credential coordinator settings.
type AuthConfig struct {
	Enabled          bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Storage          string        `koanf:"storage" json:"storage" yaml:"storage" validate:"oneof=memory file"`
	StorageDir       string        `koanf:"storagedir" json:"storagedir" yaml:"storagedir" validate:"required_if=Storage file"`
	RefreshEndpoint  string        `koanf:"refreshendpoint" json:"refreshendpoint" yaml:"refreshendpoint"`
	LoginEndpoint    string        `koanf:"loginendpoint" json:"loginendpoint" yaml:"loginendpoint"`
	LogoutEndpoint   string        `koanf:"logoutendpoint" json:"logoutendpoint" yaml:"logoutendpoint"`
	AutoRefresh      bool          `koanf:"autorefresh" json:"autorefresh" yaml:"autorefresh"`
	RefreshThreshold time.Duration `koanf:"refreshthreshold" json:"refreshthreshold" yaml:"refreshthreshold" validate:"gte=0"`
}

// SSLConfig holds TLS error classification settings.
type SSLConfig struct {
	Enabled          bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	TechnicalDetails bool `koanf:"technicaldetails" json:"technicaldetails" yaml:"technicaldetails"`
	Suggestions      bool `koanf:"suggestions" json:"suggestions" yaml:"suggestions"`
}

// RateLimitConfig holds client-side rate limiting settings. A zero limit
// disables the limiter.
type RateLimitConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=0"`
}

// TraceConfig holds request-ID propagation settings.
type TraceConfig struct {
	Header string `koanf:"header" json:"header" yaml:"header"`
	W3C    bool   `koanf:"w3c" json:"w3c" yaml:"w3c"`
}
