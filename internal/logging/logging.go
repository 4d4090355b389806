// Package logging builds the per-component logrus loggers.
package logging

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var level atomic.Uint32

func init() {
	level.Store(uint32(logrus.InfoLevel))
}

// SetLevel sets the level of the package-level logger and of every logger created afterwards.
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	level.Store(uint32(lvl))
	logrus.SetLevel(lvl)
	logrus.SetFormatter(formatter())
	return nil
}

// New returns a logger with the shared text format.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(formatter())
	logger.SetLevel(logrus.Level(level.Load()))
	return logger
}

func formatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}
