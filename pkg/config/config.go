package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "farmtrack"

	EnvAppEnv     = "FARMTRACK_APP_ENV"
	EnvLogLevel   = "FARMTRACK_LOG_LEVEL"
	EnvBackendURL = "FARMTRACK_BACKEND_URL"
	EnvAuthToken  = "FARMTRACK_AUTH_TOKEN"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMTRACK_APP_ENV" default:"development"`
	LogLevel     string `envconfig:"FARMTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the client at the farm-management API. One base URL
// and one auth token cover both the inventory and crop endpoints.
type BackendConfig struct {
	BaseURL        string        `envconfig:"FARMTRACK_BACKEND_URL" required:"true"`
	AuthToken      string        `envconfig:"FARMTRACK_AUTH_TOKEN"`
	RequestTimeout time.Duration `envconfig:"FARMTRACK_REQUEST_TIMEOUT" default:"30s"`
}

func (b *BackendConfig) validate() error {
	raw := strings.TrimSpace(b.BaseURL)
	if raw == "" {
		return fmt.Errorf("%s is required", EnvBackendURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvBackendURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", EnvBackendURL, raw)
	}
	b.BaseURL = strings.TrimRight(raw, "/")
	return nil
}
