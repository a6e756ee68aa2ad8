package logger

import (
	"io"
	"log"
	"strings"
)

const (
	DebugLevel = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	logLevelsCount // not a real level, sizes the loggers array
)

// Logger holds one *log.Logger per level. Levels below the threshold write to a null writer.
type Logger struct {
	loggers [logLevelsCount]*log.Logger
}

func logLevelPrefix(level int) string {
	switch level {
	case DebugLevel:
		return "[DBG] "
	case InfoLevel:
		return "[INF] "
	case WarningLevel:
		return "[WRN] "
	case ErrorLevel:
		return "[ERR] "
	default:
		return "[???] "
	}
}

// ParseLevel maps a level name to its value. Unknown names map to InfoLevel.
func ParseLevel(name string) int {
	switch strings.ToUpper(name) {
	case "DEBUG", "DBG":
		return DebugLevel
	case "WARN", "WARNING", "WRN":
		return WarningLevel
	case "ERROR", "ERR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func New(level int, writers ...io.Writer) *Logger {
	var w io.Writer
	switch len(writers) {
	case 0:
		w = nullWriter{}
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	lgr := Logger{}
	for i := 0; i < logLevelsCount; i++ {
		if i >= level {
			lgr.loggers[i] = log.New(w, logLevelPrefix(i), log.Ldate|log.Ltime)
		} else {
			lgr.loggers[i] = log.New(nullWriter{}, "", 0)
		}
	}
	return &lgr
}

func (lgr *Logger) Debug() *log.Logger {
	return lgr.loggers[DebugLevel]
}

func (lgr *Logger) Info() *log.Logger {
	return lgr.loggers[InfoLevel]
}

func (lgr *Logger) Warning() *log.Logger {
	return lgr.loggers[WarningLevel]
}

func (lgr *Logger) Error() *log.Logger {
	return lgr.loggers[ErrorLevel]
}

// nullWriter discards all messages
type nullWriter struct{}

func (nullWriter) Write(b []byte) (int, error) {
	return len(b), nil
}
