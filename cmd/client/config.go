package main

import (
	"time"

	"poll-chat/client"

	"github.com/kelseyhightower/envconfig"
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL    string              `envconfig:"CHAT_SERVER_URL" default:"http://localhost:3000"`
	PollInterval time.Duration       `envconfig:"CHAT_POLL_INTERVAL" default:"1s"`
	RenderLimit  int                 `envconfig:"CHAT_RENDER_LIMIT" default:"10"`
	Detector     client.DetectorKind `envconfig:"CHAT_DETECTOR" default:"cursor"`
	ClearScreen  bool                `envconfig:"CHAT_CLEAR_SCREEN" default:"true"`
	LogLevel     string              `envconfig:"LOG_LEVEL" default:"WARN"`
}

func loadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
