package bal

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

// SetLogLevel sets the level of the package logger, e.g. "debug", "info", "warn"
func SetLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	logger = logger.Level(lvl)
	return nil
}

// SetLogOutput redirects the package logger, keeping its level
func SetLogOutput(w io.Writer) {
	logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true})
}

// Logger returns the package logger
func Logger() *zerolog.Logger {
	return &logger
}
