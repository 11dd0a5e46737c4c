package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/elnino282/acm-backend/internal/auth"
)

type config struct {
	httpAddr      string
	pgDSN         string
	auth          auth.Config
	adminUser     string
	adminPassword string
}

func loadConfig() (config, error) {
	cfg := config{
		httpAddr: envOr("ACM_HTTP_ADDR", ":8080"),
		pgDSN:    os.Getenv("ACM_PG_DSN"),
		auth: auth.Config{
			SigningSecret:       []byte(os.Getenv("ACM_AUTH_SECRET")),
			ValidDuration:       time.Hour,
			RefreshableDuration: 10 * time.Hour,
		},
		adminUser:     os.Getenv("ACM_ADMIN_USER"),
		adminPassword: os.Getenv("ACM_ADMIN_PASSWORD"),
	}
	if len(cfg.auth.SigningSecret) == 0 {
		return config{}, errors.New("ACM_AUTH_SECRET is required")
	}
	var err error
	if cfg.auth.ValidDuration, err = envDuration("ACM_JWT_VALID_DURATION", cfg.auth.ValidDuration); err != nil {
		return config{}, err
	}
	if cfg.auth.RefreshableDuration, err = envDuration("ACM_JWT_REFRESHABLE_DURATION", cfg.auth.RefreshableDuration); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
