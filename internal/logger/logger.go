// internal/logger/logger.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

// Logger расширяет zap.Logger контекстными хелперами
type Logger struct {
	*zap.Logger
	cfg Config
}

// New собирает tee из консоли и ротируемого JSON-файла
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level, cfg.Development)
	if err != nil {
		return nil, err
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

	console := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
	if cfg.Pretty {
		console = newShortenCore(zapcore.NewCore(PrettyEncoder(), zapcore.Lock(os.Stdout), level))
	}
	cores := []zapcore.Core{console}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
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
		cfg: cfg,
	}, nil
}

func parseLevel(s string, development bool) (zapcore.Level, error) {
	if s == "" {
		if development {
			return zapcore.DebugLevel, nil
		}
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// WithOperation создает логгер для конкретной операции
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.NewString()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// WithUser добавляет пользователя к логам
func (l *Logger) WithUser(userID string) *zap.Logger {
	return l.With(zap.String("user_id", userID))
}

// WithIntent логирует параметры сделки
func (l *Logger) WithIntent(intent trade.Intent) *zap.Logger {
	return l.With(
		zap.String("action", string(intent.Action)),
		zap.String("mint", intent.Mint),
		zap.String("amount", intent.Amount.String()),
		zap.Bool("denominated_in_sol", intent.DenominatedInSol),
		zap.Int("slippage", intent.Slippage),
		zap.String("priority_fee", intent.PriorityFee.String()),
		zap.String("pool", string(intent.Pool)),
	)
}

// Sync игнорирует ошибки sync для терминалов
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if err != nil && (strings.Contains(err.Error(), "invalid argument") ||
		strings.Contains(err.Error(), "inappropriate ioctl for device")) {
		return nil
	}
	return err
}

// TrackPerformance отслеживает длительность операции
func (l *Logger) TrackPerformance(operation string) (end func()) {
	start := time.Now()
	opLogger := l.WithOperation(operation)
	opLogger.Debug("Starting operation")

	return func() {
		opLogger.Debug("Operation completed", zap.Duration("duration", time.Since(start)))
	}
}
