package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logToFile bool

// InitLogger configures the global zerolog logger. With a log file, JSON lines are
// appended there at debug level; otherwise a console writer on stderr is used.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logToFile = true
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
		return f, nil
	}
	logToFile = false
	SetConsoleOutput(os.Stderr)
	return io.NopCloser(nil), nil
}

// SetConsoleOutput points console logging at w, e.g. the live progress display
// while it owns the terminal. It has no effect when logging to a file.
func SetConsoleOutput(w io.Writer) {
	if logToFile {
		return
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
