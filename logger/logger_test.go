package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cnosuke/httpget/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	path := filepath.Join(t.TempDir(), "httpget.log")
	l, err := Init(config.LogConfig{Level: "debug", Path: path})
	require.NoError(t, err)

	zap.S().Debugw("logger ready", "url", "http://example.com/")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "logger ready")
	assert.Contains(t, string(b), "http://example.com/")
}

func TestInit_Levels(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{name: "default level", cfg: config.LogConfig{}},
		{name: "development", cfg: config.LogConfig{Level: "warn", Development: true}},
		{name: "invalid level", cfg: config.LogConfig{Level: "loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Init(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
