package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryan20apr/PulseChat/domain/chat"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "redis", cfg.RelayBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10.0, cfg.RatePerSecond)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, int64(32768), cfg.MaxMessageSize)
	assert.GreaterOrEqual(t, cfg.MaxMessageSize, int64(chat.MaxFrameSize))
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RELAY_BACKEND", " NATS ")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "nats", cfg.RelayBackend)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("PORT", "not-an-int")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), "got %v", err)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown backend", key: "RELAY_BACKEND", value: "kafka"},
		{name: "port out of range", key: "PORT", value: "70000"},
		{name: "zero burst", key: "RATE_LIMIT_BURST", value: "0"},
		{name: "negative rate", key: "RATE_LIMIT_PER_SECOND", value: "-1"},
		{name: "zero send buffer", key: "SEND_BUFFER_SIZE", value: "0"},
		{name: "zero message size", key: "MAX_MESSAGE_SIZE", value: "0"},
		{name: "message size below largest valid frame", key: "MAX_MESSAGE_SIZE", value: "4096"},
		{name: "unsupported log level", key: "LOG_LEVEL", value: "trace"},
		{name: "zero shutdown timeout", key: "SHUTDOWN_TIMEOUT", value: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
