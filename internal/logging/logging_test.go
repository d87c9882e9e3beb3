package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		dev   bool
		want  zapcore.Level
	}{
		{"info", false, zapcore.InfoLevel},
		{"debug", true, zapcore.DebugLevel},
		{"ERROR", false, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, tt.dev)
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(tt.want))
			require.False(t, logger.Core().Enabled(tt.want-1))
		})
	}

	_, err := New("loud", false)
	require.ErrorContains(t, err, "logging: ")
}

func TestNewNop(t *testing.T) {
	require.False(t, NewNop().Core().Enabled(zapcore.ErrorLevel))
}
