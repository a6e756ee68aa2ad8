package logger

import (
	"io"
	"log"
	"os"

	"go.uber.org/atomic"
)

var global atomic.Value

func init() {
	// Start with error+warning level to stderr
	SetupGlobalLogger(WarningLevel, os.Stderr)
}

func SetupGlobalLogger(level int, writers ...io.Writer) {
	global.Store(New(level, writers...))
}

func get() *Logger {
	return global.Load().(*Logger)
}

func Debug() *log.Logger {
	return get().Debug()
}

func Info() *log.Logger {
	return get().Info()
}

func Warning() *log.Logger {
	return get().Warning()
}

func Error() *log.Logger {
	return get().Error()
}
