package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleboard/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, engine.PolicyQueue, cfg.MovePolicy)
	assert.Equal(t, 64, cfg.MaxQueuedMoves)
	assert.Equal(t, 10*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, ConfirmNone, cfg.ConfirmMode)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.JournalPath)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOARD_HTTP_ADDR", ":9090")
	t.Setenv("BOARD_MOVE_POLICY", "reject")
	t.Setenv("BOARD_ENQUEUE_TIMEOUT", "250ms")
	t.Setenv("BOARD_CONFIRM_MODE", "http")
	t.Setenv("BOARD_CONFIRM_URL", "http://confirm.local/moves")
	t.Setenv("BOARD_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("BOARD_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, engine.PolicyReject, cfg.MovePolicy)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsProduction())

	bc := cfg.BoardCfg()
	assert.Equal(t, engine.PolicyReject, bc.Policy)
	assert.Equal(t, 250*time.Millisecond, bc.EnqueueTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown policy", map[string]string{"BOARD_MOVE_POLICY": "drop"}},
		{"unknown confirm mode", map[string]string{"BOARD_CONFIRM_MODE": "maybe"}},
		{"http mode without url", map[string]string{"BOARD_CONFIRM_MODE": "http"}},
		{"accept rate out of range", map[string]string{"BOARD_CONFIRM_ACCEPT_RATE": "1.5"}},
		{"non-positive queue", map[string]string{"BOARD_MAX_QUEUED_MOVES": "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
