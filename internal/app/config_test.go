package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 8760*time.Hour, cfg.AuditRetention)
	assert.Equal(t, 10, cfg.RequestRateLimitPerMinute)
	assert.Equal(t, "fundshare_session", cfg.SessionCookie)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("AUDIT_RETENTION", "1h")
	t.Setenv("LOG_LEVEL", "verbose")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	assert.Contains(t, err.Error(), "AUDIT_RETENTION")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	cfg := Config{StorageDriver: StoragePostgres, AuditRetention: 48 * time.Hour, SessionCookie: "s"}
	assert.ErrorContains(t, cfg.Validate(), "PG_DSN")

	cfg.PGDSN = "postgres://localhost/fundshare"
	assert.NoError(t, cfg.Validate())

	cfg.RequestRateLimitPerMinute = -1
	assert.Error(t, cfg.Validate())
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLogLevel(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", slog.Int64("account_id", 7))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, float64(7), line["account_id"])
	assert.NotContains(t, buf.String(), "dropped")
}
