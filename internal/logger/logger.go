// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// Output is either human-readable text lines or, with the json format, one
// zap JSON object per line.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If a pass is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Logger provides leveled logging
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	logger *log.Logger
	sugar  *zap.SugaredLogger // nil for the text format
}

var defaultLogger *Logger

// ParseLevel maps a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init initializes the default logger with the specified level and format ("text" or "json").
func Init(level string, format string) {
	initWith(ParseLevel(level), format, os.Stderr)
}

// SetOutput redirects the default logger, keeping its level and format.
// Mainly for tests.
func SetOutput(w io.Writer) {
	if defaultLogger == nil {
		initWith(InfoLevel, "text", w)
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.out = w
	defaultLogger.logger.SetOutput(w)
	if defaultLogger.sugar != nil {
		defaultLogger.sugar = newSugar(defaultLogger.level, w)
	}
}

func initWith(l Level, format string, w io.Writer) {
	isJSON := strings.ToLower(format) == "json"
	flags := log.LstdFlags | log.Lmicroseconds
	if !isJSON {
		flags |= log.Lshortfile
	}
	defaultLogger = &Logger{
		level:  l,
		out:    w,
		logger: log.New(w, "", flags),
	}
	if isJSON {
		defaultLogger.sugar = newSugar(l, w)
	}
}

// newSugar builds a production-style JSON zap logger writing to w.
func newSugar(l Level, w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), zapLevel(l))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func output(l Level, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > l {
		return
	}

	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	if sugar := defaultLogger.sugar; sugar != nil {
		switch l {
		case DebugLevel:
			sugar.Debugf(format, args...)
		case InfoLevel:
			sugar.Infof(format, args...)
		case WarnLevel:
			sugar.Warnf(format, args...)
		default:
			sugar.Errorf(format, args...)
		}
		return
	}
	_ = defaultLogger.logger.Output(3, "["+l.String()+"] "+fmt.Sprintf(format, args...))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	output(DebugLevel, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	output(InfoLevel, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	output(WarnLevel, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	output(ErrorLevel, format, args...)
}

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil && defaultLogger.sugar != nil {
		sugar := defaultLogger.sugar.WithOptions(zap.AddCallerSkip(-1))
		sugar.Errorf(format, args...)
		_ = sugar.Sync()
		os.Exit(1)
	}
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if defaultLogger != nil {
		_ = defaultLogger.logger.Output(2, msg)
	} else {
		log.Print(msg)
	}
	os.Exit(1)
}
