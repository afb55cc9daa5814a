// internal/logger/pretty.go
package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Ключи, значения которых в консоли сокращаются
var shortenedKeys = map[string]struct{}{
	"signature":         {},
	"mint":              {},
	"public_key":        {},
	"wallet_public_key": {},
	"bundle_id":         {},
}

// PrettyEncoder creates a compact colored console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     shortTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[%s]%s", ColorRed+ColorBold, level.CapitalString(), ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// shortenCore сокращает адреса и подписи перед записью в консоль.
// Файловый core получает полные значения.
type shortenCore struct {
	zapcore.Core
}

func newShortenCore(core zapcore.Core) zapcore.Core {
	return &shortenCore{Core: core}
}

func (c *shortenCore) With(fields []zapcore.Field) zapcore.Core {
	return &shortenCore{Core: c.Core.With(shortenFields(fields))}
}

func (c *shortenCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *shortenCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, shortenFields(fields))
}

func shortenFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if _, ok := shortenedKeys[f.Key]; !ok {
			continue
		}
		switch f.Type {
		case zapcore.StringType:
			out[i].String = shorten(f.String)
		case zapcore.ArrayMarshalerType:
			if am, ok := f.Interface.(zapcore.ArrayMarshaler); ok {
				out[i].Interface = shortenedArray{inner: am}
			}
		}
	}
	return out
}

type shortenedArray struct {
	inner zapcore.ArrayMarshaler
}

func (a shortenedArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	return a.inner.MarshalLogArray(shortenArrayEncoder{ArrayEncoder: enc})
}

type shortenArrayEncoder struct {
	zapcore.ArrayEncoder
}

func (e shortenArrayEncoder) AppendString(s string) {
	e.ArrayEncoder.AppendString(shorten(s))
}

// shorten keeps the first and last 6 characters of long base58 values
func shorten(s string) string {
	if len(s) > 16 {
		return s[:6] + "..." + s[len(s)-6:]
	}
	return s
}
