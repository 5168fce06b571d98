package main

import (
	"io"
	"time"

	"github.com/handiism/dpm-downloader/internal/download"
	"github.com/rs/zerolog"
)

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// logEvent writes a Manager progress event at the matching log level.
// Verbose events only show with --verbose.
func logEvent(log *zerolog.Logger, event download.ProgressEvent) {
	var e *zerolog.Event
	switch event.Level {
	case download.LevelVerbose:
		e = log.Debug()
	case download.LevelWarning:
		e = log.Warn()
	case download.LevelError:
		e = log.Error()
	case download.LevelSuccess:
		e = log.Info().Bool("ok", true)
	default:
		e = log.Info()
	}
	e.Msg(event.Message)
}
