// Package logging wires up the structured logger the engine and API use:
// logrus for structured fields, lumberjack for rotation, matching the
// rest of the platform's logging setup.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"rankingsengine/internal/config"
)

// Setup builds a new logrus logger configured according to cfg and
// returns it. The package-level standard logrus logger is left unchanged.
func Setup(cfg *config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if !cfg.Enabled {
		logger.SetOutput(io.Discard)
		return logger, nil
	}

	if err := ensureLogDir(cfg.MainLogFile); err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	rotating := &lumberjack.Logger{
		Filename:   cfg.MainLogFile,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	if os.Getenv("ENVIRONMENT") == "development" {
		logger.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		logger.SetOutput(rotating)
	}

	return logger, nil
}

func ensureLogDir(logFile string) error {
	dir := filepath.Dir(logFile)
	if dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
