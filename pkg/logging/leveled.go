package logging

import "github.com/rs/zerolog"

// LeveledLogger adapts a zerolog.Logger to the key/value logger interface
// used by go-retryablehttp.
type LeveledLogger struct {
	logger zerolog.Logger
}

// NewLeveledLogger wraps logger.
func NewLeveledLogger(logger zerolog.Logger) LeveledLogger {
	return LeveledLogger{logger: logger}
}

func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	// retryablehttp reports every attempt at info; keep that out of info logs.
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
