package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control where and how verbosely the logger writes.
type Options struct {
	// Level is the minimum level for regular logging: debug, info,
	// warning, or error. "critical" is accepted as an alias of error.
	Level string

	// File is the log file path. Empty disables file logging and
	// leaves stdout as the only sink.
	File string

	// RetentionDays is how many days rotated log files are kept.
	RetentionDays int
}

// Logger is a leveled logger with an additional always-visible channel
// for user-relevant outcomes (files written, messages marked or moved)
// that prints regardless of the configured level. It is constructed
// once at startup and passed by reference into every component.
type Logger struct {
	leveled *zap.SugaredLogger
	always  *zap.SugaredLogger
}

// New builds a Logger writing to stdout and, when opts.File is set, to
// a size-rotated log file whose backups are pruned after
// opts.RetentionDays days.
func New(opts Options) (*Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var writeSyncer zapcore.WriteSyncer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}

		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     opts.RetentionDays,
		}

		writeSyncer = zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(rotator),
			zapcore.AddSync(os.Stdout),
		)
	} else {
		writeSyncer = zapcore.AddSync(os.Stdout)
	}

	leveledCore := zapcore.NewCore(encoder, writeSyncer, parseLevel(opts.Level))
	alwaysCore := zapcore.NewCore(encoder, writeSyncer, zapcore.InfoLevel)

	return &Logger{
		leveled: zap.New(leveledCore).Sugar(),
		always:  zap.New(alwaysCore).Sugar(),
	}, nil
}

// Nop returns a Logger that discards all output, for tests.
func Nop() *Logger {
	nop := zap.NewNop().Sugar()
	return &Logger{leveled: nop, always: nop}
}

// With returns a Logger whose entries carry the given structured
// key/value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		leveled: l.leveled.With(args...),
		always:  l.always.With(args...),
	}
}

// Debugf logs at debug level in fmt.Sprintf style.
func (l *Logger) Debugf(format string, args ...any) {
	l.leveled.Debugf(format, args...)
}

// Infof logs at info level in fmt.Sprintf style.
func (l *Logger) Infof(format string, args ...any) {
	l.leveled.Infof(format, args...)
}

// Warnf logs at warning level in fmt.Sprintf style.
func (l *Logger) Warnf(format string, args ...any) {
	l.leveled.Warnf(format, args...)
}

// Errorf logs at error level in fmt.Sprintf style.
func (l *Logger) Errorf(format string, args ...any) {
	l.leveled.Errorf(format, args...)
}

// Fatalf logs at fatal level and exits the process.
func (l *Logger) Fatalf(format string, args ...any) {
	l.leveled.Fatalf(format, args...)
}

// Importantf logs a user-relevant outcome. Entries are emitted
// regardless of the configured level so operators always see what was
// produced.
func (l *Logger) Importantf(format string, args ...any) {
	l.always.Infof(format, args...)
}

// Sync flushes buffered entries to the sinks.
func (l *Logger) Sync() {
	_ = l.leveled.Sync()
	_ = l.always.Sync()
}

// parseLevel maps a configured level name to a zap level. "critical"
// maps to error; unknown names fall back to info.
func parseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error", "critical":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}
