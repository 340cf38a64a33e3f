package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		pretty bool
		want   zerolog.Level
	}{
		{name: "debug level", level: "debug", pretty: false, want: zerolog.DebugLevel},
		{name: "info level", level: "info", pretty: false, want: zerolog.InfoLevel},
		{name: "warn level pretty", level: "warn", pretty: true, want: zerolog.WarnLevel},
		{name: "invalid level falls back to info", level: "chatty", pretty: false, want: zerolog.InfoLevel},
		{name: "empty level falls back to info", level: "", pretty: false, want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.pretty)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.zlog.GetLevel())
			require.NotNil(t, logger.filter)
			assert.Equal(t, DefaultMaskValue, logger.filter.config.MaskValue)
		})
	}
}

func TestNewWithFilterCustomConfig(t *testing.T) {
	cfg := &FilterConfig{
		SensitiveFields: []string{"pin"},
		MaskValue:       "[HIDDEN]",
	}

	logger := NewWithFilter("debug", false, cfg)
	require.NotNil(t, logger)
	assert.Equal(t, "[HIDDEN]", logger.filter.config.MaskValue)
	assert.Equal(t, "[HIDDEN]", logger.filter.FilterString("pin", "1234"))
}

func TestNewWithFilterNilConfigUsesDefaults(t *testing.T) {
	logger := NewWithFilter("info", false, nil)
	require.NotNil(t, logger)
	assert.Equal(t, DefaultMaskValue, logger.filter.config.MaskValue)
}

func TestWithFieldsMasksSensitiveData(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := &ZeroLogger{zlog: &zl, filter: NewSensitiveDataFilter(nil)}

	logger.WithFields(map[string]any{
		"username":     "jdoe",
		"access_token": "tok_abc123",
	}).Info().Msg("login")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jdoe", entry["username"])
	assert.Equal(t, DefaultMaskValue, entry["access_token"])
}

func TestWithFieldsNilFilter(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := &ZeroLogger{zlog: &zl}

	logger.WithFields(map[string]any{"password": "plain"}).Info().Msg("no filter configured")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plain", entry["password"])
}

func TestWithContext(t *testing.T) {
	base := New("info", false)

	t.Run("non-context value returns receiver", func(t *testing.T) {
		assert.Same(t, base, base.WithContext("not a context"))
	})

	t.Run("context without logger returns receiver", func(t *testing.T) {
		assert.Same(t, base, base.WithContext(context.Background()))
	})

	t.Run("context with logger is adopted", func(t *testing.T) {
		var buf bytes.Buffer
		ctxLogger := zerolog.New(&buf)
		ctx := ctxLogger.WithContext(context.Background())

		derived := base.WithContext(ctx)
		require.NotNil(t, derived)
		assert.NotSame(t, base, derived)

		derived.Info().Str("source", "ctx").Msg("routed")
		assert.Contains(t, buf.String(), `"source":"ctx"`)
	})
}

func TestLoggingMethodsProduceOutput(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := &ZeroLogger{zlog: &zl, filter: NewSensitiveDataFilter(nil)}

	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")
	logger.Warn().Msg("warn line")
	logger.Error().Msg("error line")

	out := buf.String()
	assert.Contains(t, out, "debug line")
	assert.Contains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}
