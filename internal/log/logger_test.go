package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.TraceLevel, parseLevel("TRACE"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestComponentTagsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("debug", &buf)

	Component(logger, "client").Info().Msg("hello")
	require.Contains(t, buf.String(), "component=")
	require.Contains(t, buf.String(), "client")
	require.Contains(t, buf.String(), "hello")

	Component(nil, "x").Info().Msg("dropped")
}
