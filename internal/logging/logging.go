// Package logging builds the zerolog logger used by the rolo CLI.
//
// Diagnostics go to stderr in console form by default so that stdout stays
// reserved for command output. When a log file is configured, JSON lines are
// written there instead through a size-rotated writer.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Builder configures a logger.
type Builder struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

// New returns a builder that logs warnings and above to stderr.
func New() *Builder {
	return &Builder{level: zerolog.WarnLevel}
}

// FromPath sends logs to a rotated file at path. An empty path is ignored.
func (b *Builder) FromPath(path string) *Builder {
	b.path = path
	return b
}

// FromWriter sends logs to w without console formatting.
func (b *Builder) FromWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// Level sets the minimum level.
func (b *Builder) Level(level zerolog.Level) *Builder {
	b.level = level
	return b
}

// Make builds the logger. The returned closer releases the log file, if any.
func (b *Builder) Make() (zerolog.Logger, io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case b.path != "":
		lj := &lumberjack.Logger{
			Filename:   b.path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		w = zerolog.SyncWriter(lj)
		closer = lj
	case b.writer != nil:
		w = b.writer
	default:
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return logger, closer, nil
}

// ParseLevel resolves a level name. Empty means warn.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
