package main

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost" validate:"required"`
	Port                 int           `env:"PORT,default=8080" validate:"gt=0,lte=65535"`
	LogLevel             string        `env:"LOG_LEVEL,required=true" validate:"required"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BufferSize           int           `env:"BUFFER_SIZE,required=true" validate:"gt=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true" validate:"gt=0"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	IngestionTimeout     time.Duration `env:"INGESTION_TIMEOUT,default=1s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	MaxFrameSize         int64         `env:"MAX_FRAME_SIZE,default=4096" validate:"gt=0"`
	MaxLabelLength       int           `env:"MAX_LABEL_LENGTH,default=64" validate:"gt=0"`
	EchoToSender         bool          `env:"ECHO_TO_SENDER,default=true"`
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}
