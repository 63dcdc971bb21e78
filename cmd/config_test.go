package main

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BUFFER_SIZE", "100")
	t.Setenv("CONNECTION_BUFFER_SIZE", "16")
	t.Setenv("SINK_TIMEOUT", "50ms")
	t.Setenv("RESTART_INTERVAL", "200ms")
}

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal("localhost", config.Host)
	req.Equal(8080, config.Port)
	req.Equal(50*time.Millisecond, config.SinkTimeout)
	req.Equal(60*time.Second, config.PongWait)
	req.Equal(int64(4096), config.MaxFrameSize)
	req.True(config.EchoToSender)
	req.Nil(config.LimitMessages)
}

func TestConfig_Invalid(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("BUFFER_SIZE", "0")
	t.Setenv("ECHO_TO_SENDER", "false")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.False(config.EchoToSender)

	// Then a zero sized queue is refused
	req.Error(config.Validate())
}

func TestConfig_Missing_Required(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "DEBUG")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.Error(err)
}
