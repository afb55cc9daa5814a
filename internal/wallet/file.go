// ==================================
// File: internal/wallet/file.go
// ==================================
package wallet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileConfig describes the wallets YAML file used for multi-wallet launches.
type FileConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
		Amount     string `yaml:"amount"` // пусто: сумма из флага или bundle.initial_buy
	} `yaml:"wallets"`
}

// Named is a wallet together with the label it has in the file.
// Amount is zero when the entry does not set its own buy.
type Named struct {
	Name   string
	Wallet *Wallet
	Amount decimal.Decimal
}

// LoadWallets загружает кошельки из YAML-файла, сохраняя порядок записей.
// Первый кошелёк в файле создаёт токен, остальные покупают.
func LoadWallets(path string) ([]Named, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(cfg.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in %s", path)
	}

	wallets := make([]Named, 0, len(cfg.Wallets))
	for i, entry := range cfg.Wallets {
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("wallet_%d", i+1)
		}
		amount := decimal.Zero
		if entry.Amount != "" {
			amount, err = decimal.NewFromString(entry.Amount)
			if err != nil || !amount.IsPositive() {
				discardAll(wallets)
				return nil, fmt.Errorf("wallet %q: amount %q must be a positive number", name, entry.Amount)
			}
		}
		w, err := NewWallet(entry.PrivateKey)
		if err != nil {
			discardAll(wallets)
			return nil, fmt.Errorf("wallet %q: %w", name, err)
		}
		wallets = append(wallets, Named{Name: name, Wallet: w, Amount: amount})
	}
	return wallets, nil
}

func discardAll(wallets []Named) {
	for _, nw := range wallets {
		nw.Wallet.Discard()
	}
}
