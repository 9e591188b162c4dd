package observe

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. format is "console" for
// humans or "json" for services. Logs go to stderr so stdout stays clean for
// reports.
func InitLogger(level, format string) zerolog.Logger {
	return initLogger(os.Stderr, level, format)
}

func initLogger(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(out).With().
			Timestamp().
			Str("service", "symptomlog").
			Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}).With().
			Timestamp().
			Logger()
	}

	log.Logger = logger
	return logger
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	return log.Logger
}
