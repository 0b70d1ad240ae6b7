package safe

import (
	"runtime/debug"

	"BelongingsHub/logger"

	"go.uber.org/zap"
)

// Go starts f in a goroutine that recovers from panic,
// so that one bad connection or broker message doesn't crash the process.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover logs a recovered panic; call it deferred.
func Recover(name string) {
	if r := recover(); r != nil {
		LogPanic(name, r)
	}
}

// LogPanic for callers that already recovered themselves.
func LogPanic(name string, r any) {
	logger.Error("[safe] panic recovered",
		zap.String("where", name),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()))
}
