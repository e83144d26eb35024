package storage

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"
)

// zerologWriter routes gorm's log lines into the service's JSON log stream.
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn().Msgf(strings.ReplaceAll(format, "\n", " "), args...)
}

// newGormLogger reports slow queries and real failures only. A missed
// First is a normal lookup result for the booking store, not an error.
func newGormLogger(l zerolog.Logger) logger.Interface {
	return logger.New(zerologWriter{logger: l.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func defaultGormLogger() logger.Interface {
	return newGormLogger(log.Logger)
}
