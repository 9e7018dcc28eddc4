package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_WritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelDebug, true)

	logger.Debug("insert", Table("emails"), Count(3), Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "insert")
	assert.Contains(t, out, "table=emails")
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "error=boom")
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn, true)

	logger.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestErr_NilIsDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, true)

	logger.Info("ok", Err(nil))
	assert.NotContains(t, buf.String(), "error")
}

func TestNewLogger_PlainOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("opened", Table("emails"))

	assert.Contains(t, buf.String(), "table=emails")
	assert.NotContains(t, buf.String(), "\x1b[", "no ANSI escapes")
}
