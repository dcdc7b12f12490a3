package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// DetectEnv reads TEMPVOICE_ENV, then APP_ENV. Anything unknown is dev.
func DetectEnv() Env {
	raw := os.Getenv("TEMPVOICE_ENV")
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("APP_ENV")
	}
	return ParseEnv(raw)
}

func ParseEnv(raw string) Env {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

// ParseLevel accepts debug, info, warn, error (any case). Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}
