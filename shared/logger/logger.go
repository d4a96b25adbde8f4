package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger and installs it as the zerolog global.
// Debug mode writes human readable lines, otherwise JSON.
func New(debug bool, hooks ...zerolog.Hook) zerolog.Logger {
	var output io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if debug {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	for _, h := range hooks {
		logger = logger.Hook(h)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	return logger
}
