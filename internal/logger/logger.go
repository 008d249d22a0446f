package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig controls log file rotation.
type RotationConfig struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New builds the service logger. An empty file logs JSON to stdout; otherwise
// the file is rotated by lumberjack. Debug level switches to the console encoder.
func New(level, file string) (*zap.Logger, error) {
	lvl := ParseLevel(level)
	if file == "" {
		cfg := zap.NewProductionConfig()
		if lvl == zapcore.DebugLevel {
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.EncoderConfig = encoderConfig(cfg.EncoderConfig)
		return cfg.Build()
	}
	return NewWithRotation(lvl, RotationConfig{Filename: file, Compress: true}), nil
}

// NewWithRotation writes JSON logs to a rotated file.
func NewWithRotation(level zapcore.Level, rc RotationConfig) *zap.Logger {
	if rc.MaxSize == 0 {
		rc.MaxSize = 100
	}
	if rc.MaxBackups == 0 {
		rc.MaxBackups = 3
	}
	if rc.MaxAge == 0 {
		rc.MaxAge = 28
	}
	w := &lumberjack.Logger{
		Filename:   rc.Filename,
		MaxSize:    rc.MaxSize,
		MaxBackups: rc.MaxBackups,
		MaxAge:     rc.MaxAge,
		Compress:   rc.Compress,
	}
	enc := zapcore.NewJSONEncoder(encoderConfig(zap.NewProductionEncoderConfig()))
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(w), level),
		// errors still reach stderr so crashes are visible without the file
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapcore.ErrorLevel),
	)
	return zap.New(core, zap.AddCaller())
}

func encoderConfig(ec zapcore.EncoderConfig) zapcore.EncoderConfig {
	ec.TimeKey = "timestamp"
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	ec.LevelKey = "level"
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	ec.MessageKey = "message"
	return ec
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
