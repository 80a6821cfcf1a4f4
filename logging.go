package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cdfmlr/crud/log"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = log.ZoneLogger("audioguide")

// setupLogging configures the logrus logger shared by the zone loggers.
func setupLogging(c LogConfig) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("setupLogging: %w", err)
	}
	logger.Logger.SetLevel(level)

	switch c.Format {
	case "json":
		logger.Logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("setupLogging: unknown format %q", c.Format)
	}

	if c.File != "" {
		logger.Logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
		}))
	}
	return nil
}
