package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		level   string
		format  string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{name: "default is info", level: "", format: "json", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{name: "debug console", level: "debug", format: "console", enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{name: "warn", level: "warn", format: "json", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{name: "unknown level falls back to info", level: "loud", format: "json", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(tc.level, tc.format, "visitord")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.enabled))
			assert.False(t, l.Core().Enabled(tc.muted))
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l, err := New("info", "json", "")
	require.NoError(t, err)
	assert.Same(t, l, OrNop(l))
}
