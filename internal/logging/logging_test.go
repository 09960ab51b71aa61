package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		verbose bool
		want    zapcore.Level
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig(), want: zapcore.InfoLevel},
		{name: "console warn", cfg: Config{Level: "warn", Format: "console"}, want: zapcore.WarnLevel},
		{name: "verbose", cfg: DefaultConfig(), verbose: true, want: zapcore.DebugLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg, tt.verbose)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}
