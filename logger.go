package bitsvg

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerPtr stores the active logger. Accessed atomically so that SetLogger
// can be called concurrently with workers processing images.
var loggerPtr atomic.Pointer[zap.Logger]

func init() {
	loggerPtr.Store(zap.NewNop())
}

// SetLogger configures the logger used by the package.
// By default bitsvg produces no log output. Pass nil to silence it again.
//
// Log levels used:
//   - Debug: per layer statistics (polylines traced, primitives produced)
//   - Info: per image summaries
//   - Warn: contained failures (skipped layers, trace store errors, budget exhaustion)
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *zap.Logger {
	return loggerPtr.Load()
}
