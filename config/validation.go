package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against the struct-tag rules plus the
// cross-field constraints the tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return fmt.Errorf("field %s failed rule %q", first.Namespace(), first.Tag())
		}
		return err
	}

	if cfg.Retry.MaxDelay > 0 && cfg.Retry.BaseDelay > cfg.Retry.MaxDelay {
		return fmt.Errorf("retry config: basedelay %s exceeds maxdelay %s", cfg.Retry.BaseDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Auth.Enabled && cfg.Auth.AutoRefresh && cfg.Auth.RefreshEndpoint == "" {
		return fmt.Errorf("auth config: autorefresh requires a refreshendpoint")
	}
	if cfg.RateLimit.Limit > 0 && cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit config: a positive limit requires a positive burst")
	}
	return nil
}
