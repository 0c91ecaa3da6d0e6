package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. The development environment
// logs at debug level, everything else at info.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, nil)
}

// SetupWithWriter configures zerolog with an additional JSON writer next to
// the console output.
func SetupWithWriter(
	environment string,
	additionalWriter io.Writer,
) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}

	var writer io.Writer = consoleWriter
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(consoleWriter, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger

	return logger
}
