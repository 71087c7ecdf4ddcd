package message

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger replaces the package logger. Debug events are emitted for header
// entries dropped during bulk import, stream detaches and uploaded file moves.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Logger returns the package logger. It discards everything until SetLogger
// is called.
func Logger() *zerolog.Logger {
	return logger.Load()
}
