// Package logger builds the zap logger used by the nativekit CLI.
package logger

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-drift/nativekit/internal/config"
)

// Logger is a zap.Logger whose output levels can be changed at runtime.
type Logger struct {
	*zap.Logger
	levels []zap.AtomicLevel
}

// SetLevel changes the level of every output.
func (l *Logger) SetLevel(level zapcore.Level) {
	for _, lvl := range l.levels {
		lvl.SetLevel(level)
	}
}

// New creates a logger teeing to the enabled console and file outputs.
func New(cfg config.LogConfig) (*Logger, error) {
	global := ParseLevel(cfg.Level)

	var (
		cores  []zapcore.Core
		levels []zap.AtomicLevel
	)

	if cfg.Console.Enabled {
		level := zap.NewAtomicLevelAt(resolveLevel(cfg.Console.Level, global))
		levels = append(levels, level)
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.Console.Format), zapcore.Lock(os.Stdout), level))
	}

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return nil, pkgerrors.New("file.path must be specified when file logging is enabled")
		}
		level := zap.NewAtomicLevelAt(resolveLevel(cfg.File.Level, global))
		levels = append(levels, level)
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.File.Format), newFileWriter(cfg.File), level))
	}

	switch len(cores) {
	case 0:
		return nil, pkgerrors.New("at least one log output (console or file) must be enabled")
	case 1:
		return &Logger{Logger: zap.New(cores[0]), levels: levels}, nil
	default:
		return &Logger{Logger: zap.New(zapcore.NewTee(cores...)), levels: levels}, nil
	}
}

// ParseLevel converts a config level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case config.LogLevelDebug:
		return zap.DebugLevel
	case config.LogLevelWarn:
		return zap.WarnLevel
	case config.LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func resolveLevel(output string, global zapcore.Level) zapcore.Level {
	if output != "" {
		return ParseLevel(output)
	}
	return global
}

func newEncoder(format string) zapcore.Encoder {
	if format == config.LogFormatJSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if format == config.LogFormatText {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func newFileWriter(cfg config.FileLogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.Rotation.MaxSize,
		MaxAge:     cfg.Rotation.MaxAge,
		MaxBackups: cfg.Rotation.MaxBackups,
		Compress:   cfg.Rotation.Compress,
	})
}
