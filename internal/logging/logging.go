// Package logging builds the process logger: a console writer on stderr and,
// optionally, a size-rotated JSON log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means warn.
	Level string
	// Verbosity is the number of -v flags; it can only raise the level.
	Verbosity int
	// File, when set, receives JSON logs in addition to the console.
	File string
	// Out is the console destination, stderr when nil.
	Out io.Writer
}

// Level resolves the effective level from a level name and a verbosity count
// (0 keeps the named level, 1 is at least info, 2 or more is debug).
func Level(name string, verbosity int) (zerolog.Level, error) {
	level := zerolog.WarnLevel
	if name != "" {
		parsed, err := zerolog.ParseLevel(name)
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = parsed
	}

	switch {
	case verbosity >= 2 && level > zerolog.DebugLevel:
		level = zerolog.DebugLevel
	case verbosity == 1 && level > zerolog.InfoLevel:
		level = zerolog.InfoLevel
	}
	return level, nil
}

// New creates the logger described by opts. The returned closer releases the
// log file and must be called on exit.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := Level(opts.Level, opts.Verbosity)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	var writer io.Writer = zerolog.ConsoleWriter{Out: out}
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		writer = zerolog.MultiLevelWriter(writer, file)
		closer = file
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
