package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	cfg := DefaultConfig()
	cfg.File = path

	l, err := New(cfg)
	require.NoError(t, err)

	l.WithIntent(trade.Intent{Action: trade.ActionBuy, Mint: "M1", Amount: decimal.RequireFromString("0.5")}).Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"mint":"M1"`)
	assert.Contains(t, string(data), `"amount":"0.5"`)
}

func TestParseLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	l, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(1))

	l, err = New(Config{Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestShortenFields(t *testing.T) {
	sig := "5VERYlongSignatureValueThatKeepsGoingOnAndOn"
	fields := shortenFields([]zap.Field{
		zap.String("signature", sig),
		zap.String("note", sig),
		zap.Int("count", 3),
	})

	assert.Equal(t, "5VERYl...nAndOn", fields[0].String)
	assert.Equal(t, sig, fields[1].String)
	assert.Equal(t, int64(3), fields[2].Integer)
	assert.Equal(t, "short", shorten("short"))
}

func TestPrettyConsole(t *testing.T) {
	cfg := Config{Level: "info", Pretty: true}
	l, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
