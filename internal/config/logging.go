package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "sponsorhub"

// NewLogger builds the process-wide root logger. Every line carries the
// service and process fields so serve and worker output can be told apart in
// a shared sink. An unknown level falls back to info rather than failing
// startup.
func NewLogger(cfg LoggingConfig, process string) zerolog.Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	logger := newLogger(output, cfg, process)
	log.Logger = logger
	return logger
}

func newLogger(output io.Writer, cfg LoggingConfig, process string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("service", serviceName)
	if process != "" {
		ctx = ctx.Str("process", process)
	}
	return ctx.Logger()
}
