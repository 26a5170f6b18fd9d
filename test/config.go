package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BufferSize    int           `envconfig:"SCENARIO_BUFFER_SIZE" default:"64"`
	SinkTimeout   time.Duration `envconfig:"SCENARIO_SINK_TIMEOUT" default:"3s"`
	EventTimeout  time.Duration `envconfig:"SCENARIO_EVENT_TIMEOUT" default:"2s"`
	LimitMessages int           `envconfig:"SCENARIO_LIMIT_MESSAGES" default:"100"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
