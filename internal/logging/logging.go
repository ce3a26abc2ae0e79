// Package logging builds the process-wide logger and rotates the log file it
// appends to.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures the logger for one run.
type Options struct {
	// Path of the log file; empty means stderr only.
	Path string
	// Verbose maps to debug level.
	Verbose bool
	// MaxSize in bytes at or above which the live log is rotated before the
	// run starts. Zero disables rotation.
	MaxSize int64
	// Retention is the number of rotated snapshots kept.
	Retention int
}

// New builds a logrus logger writing timestamped lines to stderr and, when a
// path is configured, to the log file. An oversized live log is rotated
// first.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	logger.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	out := io.Writer(os.Stderr)
	if opts.Path != "" {
		if err := RotateIfNeeded(opts.Path, opts.MaxSize, opts.Retention); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}

		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.Path, err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	logger.SetOutput(out)

	return logger, nil
}
