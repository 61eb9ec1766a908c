// Package logging configures the two zerolog streams the engine writes to:
// a structured message log for configuration/error/lifecycle events, and a
// separate progress stream the scheduler's supervisor goroutine writes
// periodic training-progress lines to. Kept as two loggers, not one, so a
// caller can silence progress spam (e.g. in tests) without losing error
// visibility.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Loggers bundles the message and progress streams.
type Loggers struct {
	Log      zerolog.Logger
	Progress zerolog.Logger
}

// New builds console-formatted loggers writing to w (message) and
// progressW (progress). Pass io.Discard for either to silence it.
func New(w, progressW io.Writer, verbose int) Loggers {
	level := zerolog.InfoLevel
	switch {
	case verbose <= 0:
		level = zerolog.Disabled
	case verbose == 1:
		level = zerolog.WarnLevel
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	log := zerolog.New(console).Level(level).With().Timestamp().Logger()

	progressLevel := zerolog.InfoLevel
	if verbose < 2 {
		progressLevel = zerolog.Disabled
	}
	progressConsole := zerolog.ConsoleWriter{Out: progressW, TimeFormat: time.RFC3339}
	progress := zerolog.New(progressConsole).Level(progressLevel).With().Timestamp().Logger()

	return Loggers{Log: log, Progress: progress}
}

// Default builds loggers for the CLI entrypoint: messages go to stderr and
// progress to stdout, so the two streams can be redirected separately.
func Default(verbose int) Loggers {
	return New(os.Stderr, os.Stdout, verbose)
}
