package logger

import (
	"log/slog"
	"os"
)

var def *slog.Logger

// Init builds the process logger for the environment and installs it as slog's default.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "app"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	h = traceHandler{Handler: h.WithAttrs(commonAttr(cfg))}

	base := slog.New(h)
	slog.SetDefault(base)
	def = base
	return base
}

func L() *slog.Logger {
	if def != nil {
		return def
	}
	return Init(Config{})
}
