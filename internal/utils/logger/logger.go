// internal/utils/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger extends zap.Logger with workflow-scoped helpers.
type Logger struct {
	*zap.Logger
	config *Config
}

// New builds a console logger on stderr, teed into a rotated JSON file when
// cfg.LogFile is set.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}
	consoleLevel := level
	if cfg.Quiet {
		consoleLevel = zapcore.WarnLevel
	}

	consoleConfig := consoleEncoderConfig(!cfg.NoColor)
	if cfg.Development {
		consoleConfig = encoderConfig
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), consoleLevel),
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
	}, nil
}

// Wrap adapts an existing zap logger, e.g. zaptest in tests.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l, config: DefaultConfig()}
}

// NewSessionID returns a fresh workflow correlation id.
func NewSessionID() string {
	return uuid.New().String()
}

// WithSession scopes logs to one launch or trade session.
func WithSession(l *zap.Logger, sessionID, workflow string) *zap.Logger {
	return l.With(zap.String("session_id", sessionID), zap.String("workflow", workflow))
}

// WithStep scopes logs to one pipeline step.
func WithStep(l *zap.Logger, index int, name string) *zap.Logger {
	return l.With(zap.Int("step_index", index), zap.String("step", name))
}

// WithTransaction adds transaction context.
func (l *Logger) WithTransaction(tx common.Hash) *zap.Logger {
	return l.With(
		zap.String("tx_hash", tx.Hex()),
		zap.Time("tx_time", time.Now().UTC()),
	)
}

// WithOperation creates a logger for one operation with a correlation id.
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", NewSessionID()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// WithComponent tags logs with a subsystem name.
func (l *Logger) WithComponent(component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

// WithWallet tags logs with the signing address.
func (l *Logger) WithWallet(addr common.Address) *zap.Logger {
	return l.With(zap.String("wallet", addr.Hex()))
}

// Sync flushes, ignoring the errors terminals return for stdout/stderr.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if err != nil && (errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)) {
		return nil
	}
	return err
}

// TrackPerformance logs the duration of an operation when the returned
// func is called.
func (l *Logger) TrackPerformance(operation string) (end func()) {
	return TrackPerformance(l.Logger, operation)
}

// TrackPerformance is the free-function form for injected *zap.Logger.
func TrackPerformance(l *zap.Logger, operation string) (end func()) {
	start := time.Now()
	opLogger := l.With(zap.String("operation", operation))
	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}
