package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-tenant-admin/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, logging.ParseLevel(in))
		})
	}
}

func TestNew_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "PROD")

	logger.Debug().Msg("hidden")
	logger.Info().Str("tenant", "t-1").Msg("visible")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"tenant":"t-1"`)
	require.Contains(t, buf.String(), `"message":"visible"`)
}
