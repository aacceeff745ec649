package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	HTTPAddr      string
	StoreDriver   string // "memory" or "postgres"
	DatabaseURL   string
	EnginePython  string
	EngineScript  string
	EngineTimeout time.Duration
	NATSURL       string
	EventSubject  string
	LogLevel      string
}

func loadConfig() (config, error) {
	cfg := config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8808"),
		StoreDriver:  getenv("STORE_DRIVER", "memory"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		EnginePython: getenv("ENGINE_PYTHON", "python3"),
		EngineScript: getenv("ENGINE_SCRIPT", "scripts/langextract_runner.py"),
		NATSURL:      getenv("NATS_URL", ""),
		EventSubject: getenv("EVENT_SUBJECT", "extractions.jobs"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	timeout, err := getenvDuration("ENGINE_TIMEOUT", 0)
	if err != nil {
		return config{}, err
	}
	cfg.EngineTimeout = timeout

	switch cfg.StoreDriver {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return config{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return config{}, fmt.Errorf("unknown STORE_DRIVER %q (want memory or postgres)", cfg.StoreDriver)
	}

	if cfg.EngineScript == "" {
		return config{}, fmt.Errorf("ENGINE_SCRIPT must not be empty")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	// Accept bare seconds as well as Go duration strings.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
