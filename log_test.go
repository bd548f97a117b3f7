package bal

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	saved := logger
	defer func() { logger = saved }()

	require.Error(t, SetLogLevel("chatty"))

	buf := new(bytes.Buffer)
	SetLogOutput(buf)
	require.NoError(t, SetLogLevel("debug"))
	require.Equal(t, zerolog.DebugLevel, Logger().GetLevel())

	_, err := RandomTopology(2, 1, 4, DefaultNetParams(), NewRandSrc("logged"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "switch graph")

	buf.Reset()
	require.NoError(t, SetLogLevel("info"))
	_, err = RandomTopology(2, 1, 4, DefaultNetParams(), NewRandSrc("quiet"))
	require.NoError(t, err)
	require.Empty(t, buf.String())
}
