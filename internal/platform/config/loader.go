package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"florence-server-go/internal/platform/errors"
)

const defaultConfigPath = ".config.yaml"

// Loader reads configuration from defaults, an optional yaml file and
// environment variable overrides, in that order.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      defaultConfigPath,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	path := l.path
	if envPath := os.Getenv("FLORENCE_CONFIG"); envPath != "" {
		path = envPath
	}

	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load", "parse config file", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.KindConfig, "config.load", "read config file", err)
	} else {
		path = ""
	}

	l.applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLORENCE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FLORENCE_SERVER_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("FLORENCE_RUNTIME_URL"); v != "" {
		cfg.Runtime.BaseURL = v
	}
	if v := os.Getenv("FLORENCE_RUNTIME_MODEL"); v != "" {
		cfg.Runtime.Model = v
	}
	if v := os.Getenv("FLORENCE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate",
			fmt.Sprintf("invalid server port: %d", cfg.Server.Port))
	}
	if cfg.Runtime.BaseURL == "" {
		return errors.New(errors.KindConfig, "config.validate", "runtime url is required")
	}
	if cfg.Server.Auth.Enabled && cfg.Server.Token == "" {
		return errors.New(errors.KindConfig, "config.validate", "auth enabled but server token is empty")
	}
	if cfg.Security.MaxFileSize <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "security max_file_size must be positive")
	}
	return nil
}
