package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{" INFO ", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.level, FormatConsole)
		require.NoError(t, err, tc.level)
		assert.True(t, l.Core().Enabled(tc.want), tc.level)
		if tc.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tc.want-1), tc.level)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	l, err := New("info", FormatJSON)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("loud", FormatConsole)
	assert.Error(t, err)
	_, err = New("info", "xml")
	assert.Error(t, err)
}
