package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "", want: zerolog.InfoLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: " WARN ", want: zerolog.WarnLevel},
		{in: "disabled", want: zerolog.Disabled},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewConsoleWriterHonoursLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closeLog, err := New(Options{Level: "warn", Out: &buf})
	require.NoError(t, err)
	defer func() { require.NoError(t, closeLog()) }()

	logger.Info().Msg("hidden")
	logger.Warn().Str("device", "/dev/ttyUSB0").Msg("link lost")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "link lost")
	assert.Contains(t, out, "/dev/ttyUSB0")
}

func TestNewFileWritesJSONLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "camlink.log")
	logger, closeLog, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug().Str("req_id", "7").Msg("request sent")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"req_id":"7"`)
	assert.Contains(t, string(data), `"message":"request sent"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, closeLog, err := New(Options{Level: "chatty"})
	require.Error(t, err)
	require.NoError(t, closeLog())
}
