package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing JSON to os.Stderr.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("DEBUG") != "" {
			level = zerolog.DebugLevel
		}
		defaultLogger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	})
}

// Get returns the initialized default logger.
func Get() zerolog.Logger {
	Init()
	return defaultLogger
}

// Info logs an informational message with alternating key/value args.
func Info(msg string, args ...any) {
	l := Get()
	l.Info().Fields(fields(args)).Msg(msg)
}

// Warn logs a warning message with alternating key/value args.
func Warn(msg string, args ...any) {
	l := Get()
	l.Warn().Fields(fields(args)).Msg(msg)
}

// Error logs an error message. A nil err is allowed.
func Error(msg string, err error, args ...any) {
	l := Get()
	l.Error().Err(err).Fields(fields(args)).Msg(msg)
}

// Debug logs a debug message with alternating key/value args.
func Debug(msg string, args ...any) {
	l := Get()
	l.Debug().Fields(fields(args)).Msg(msg)
}

// fields converts alternating key/value args into a map for zerolog.
// A trailing key without a value is dropped.
func fields(args []any) map[string]any {
	if len(args) < 2 {
		return nil
	}
	m := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		m[key] = args[i+1]
	}
	return m
}
