package core

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/storage"
)

// Environment variables read by LoadConfig
const (
	EnvStore       = "RECVAULT_STORE"
	EnvLogLevel    = "RECVAULT_LOG_LEVEL"
	EnvSessionIdle = "RECVAULT_SESSION_IDLE"
)

// Config is the environment-derived vault configuration
type Config struct {
	Backend     storage.Backend
	LogLevel    logrus.Level
	SessionIdle time.Duration
}

// LoadConfig reads configuration through getenv; nil means os.Getenv.
func LoadConfig(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Config{LogLevel: logrus.WarnLevel}

	backend, err := storage.ParseBackend(getenv(EnvStore))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", EnvStore, err)
	}
	cfg.Backend = backend

	if s := getenv(EnvLogLevel); s != "" {
		level, err := logrus.ParseLevel(s)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}

	if s := getenv(EnvSessionIdle); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvSessionIdle, err)
		}
		if d < 0 {
			return cfg, fmt.Errorf("%s: negative duration %s", EnvSessionIdle, s)
		}
		cfg.SessionIdle = d
	}

	return cfg, nil
}

// Logger builds the stderr logger for cfg
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(c.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log
}

// Options converts cfg into Vault options
func (c Config) Options() []Option {
	return []Option{
		WithBackend(c.Backend),
		WithLogger(c.Logger()),
		WithIdleTimeout(c.SessionIdle),
	}
}
