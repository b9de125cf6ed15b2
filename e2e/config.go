package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL targets a running server; when empty the suite starts one in-process
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_DEBUG_JSON allows dumping full HTTP request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours      bool `envconfig:"E2E_COLOURS" default:"true"`
	PollInterval int  `envconfig:"E2E_POLL_INTERVAL_MS" default:"20"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
