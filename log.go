package compositor

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// baseLogger is the package-wide logger. It discards everything until
// SetLogger is called.
var baseLogger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	baseLogger.Store(&nop)
}

// SetLogger replaces the package-wide logger. Components created afterwards
// log through it; existing compositors keep the logger they were built with.
func SetLogger(l zerolog.Logger) {
	baseLogger.Store(&l)
}

// Logger returns the package-wide logger.
func Logger() zerolog.Logger {
	return *baseLogger.Load()
}

// componentLogger returns a child logger tagged with the component name.
func componentLogger(name string) zerolog.Logger {
	return baseLogger.Load().With().Str("component", name).Logger()
}

// logDuration logs how long an operation took at debug level.
func logDuration(l zerolog.Logger, start time.Time, operation string) {
	l.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("operation completed")
}
