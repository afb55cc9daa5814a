// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("license key is set but keygen account or product is missing")
	ErrExpired       = errors.New("license has expired")
)

// Config описывает аккаунт Keygen и ключ лицензии. Пустой Key отключает проверку.
type Config struct {
	Key          string
	AccountID    string
	ProductID    string
	ProductToken string
}

// Enabled reports whether startup must validate a license.
func (c Config) Enabled() bool { return c.Key != "" }

// keygen-go хранит настройки в глобальных переменных
var keygenMu sync.Mutex

// Gate validates the license before the bot accepts commands.
type Gate struct {
	cfg         Config
	logger      *zap.Logger
	fingerprint func() (string, error)
	validate    func(ctx context.Context, fingerprint string) error
}

func NewGate(cfg Config, logger *zap.Logger) *Gate {
	g := &Gate{
		cfg:         cfg,
		logger:      logger.Named("license"),
		fingerprint: machineFingerprint,
	}
	g.validate = g.validateWithKeygen
	return g
}

// Check validates the configured key. Disabled gates pass.
func (g *Gate) Check(ctx context.Context) error {
	if !g.cfg.Enabled() {
		g.logger.Debug("License gate disabled")
		return nil
	}
	if g.cfg.AccountID == "" || g.cfg.ProductID == "" {
		return ErrNotConfigured
	}

	fingerprint, err := g.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	g.logger.Info("Validating license", zap.String("key_prefix", prefix(g.cfg.Key)))
	if err := g.validate(ctx, fingerprint); err != nil {
		return err
	}
	g.logger.Info("License validation successful")
	return nil
}

func (g *Gate) validateWithKeygen(ctx context.Context, fingerprint string) error {
	keygenMu.Lock()
	defer keygenMu.Unlock()

	keygen.Account = g.cfg.AccountID
	keygen.Product = g.cfg.ProductID
	keygen.Token = g.cfg.ProductToken
	keygen.LicenseKey = g.cfg.Key

	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		g.logger.Info("License not activated, attempting activation")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		g.logger.Info("License activated", zap.String("machine_id", machine.ID))
	case errors.Is(err, keygen.ErrLicenseExpired):
		return ErrExpired
	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if lic == nil {
		return errors.New("license not found")
	}
	return nil
}

func prefix(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}

// machineFingerprint hashes hostname, first active MAC and OS.
func machineFingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var mac string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			mac = iface.HardwareAddr.String()
			break
		}
	}
	if mac == "" {
		return "", errors.New("no network interfaces found")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", hostname, mac, runtime.GOOS)))
	return fmt.Sprintf("%x", hash), nil
}
