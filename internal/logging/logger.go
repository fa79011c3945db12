package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"imsenvista/internal/config"
)

// New returns the process logger: colored text in dev, JSON in prod
func New(cfg config.LogConfig, appName, version string) (*slog.Logger, error) {
	return NewWithWriter(os.Stdout, cfg, appName, version)
}

// NewWithWriter is New writing to w
func NewWithWriter(w io.Writer, cfg config.LogConfig, appName, version string) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	if cfg.Env != "prod" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  level == slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName), nil
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.Env,
	), nil
}
