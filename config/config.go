package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the configuration file Load looks for in the working
// directory.
const DefaultFile = "fetchclient.yaml"

// EnvPrefix namespaces the environment variables read by Load, e.g.
// FETCH_CLIENT_BASEURL maps to client.baseurl.
const EnvPrefix = "FETCH_"

// Load builds the configuration from three sources, lowest priority first:
// built-in defaults, the optional DefaultFile, then FETCH_* environment
// variables.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile is Load with an explicit file path. A missing file is not an
// error; the defaults and environment still apply.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// The config file is optional.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", ".")
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	return unmarshalAndValidate(k)
}

// LoadBytes builds the configuration from defaults overlaid with the given
// YAML document. Intended for embedded configuration and tests.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config bytes: %w", err)
	}

	return unmarshalAndValidate(k)
}

func unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout": "30s",

		"retry.maxretries":    3,
		"retry.basedelay":     "1s",
		"retry.maxdelay":      "30s",
		"retry.backofffactor": 2.0,
		"retry.jitter":        true,

		"log.level":           "info",
		"log.pretty":          false,
		"log.payloads":        false,
		"log.maxpayloadbytes": 1024,

		"auth.enabled":          false,
		"auth.storage":          StorageMemory,
		"auth.autorefresh":      false,
		"auth.refreshthreshold": "5m",

		"ssl.enabled":          false,
		"ssl.technicaldetails": false,
		"ssl.suggestions":      true,

		"ratelimit.limit": 0,
		"ratelimit.burst": 0,

		"trace.header": "X-Request-ID",
		"trace.w3c":    false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
