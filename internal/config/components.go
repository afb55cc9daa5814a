package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/logger"
	"github.com/rovshanmuradov/pumpbundle/internal/notify"
	"github.com/rovshanmuradov/pumpbundle/internal/pumpportal"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/schedule"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
)

func (c *Config) PortalConfig() pumpportal.Config {
	return pumpportal.Config{
		TradeURL:  c.PumpPortal.TradeURL,
		WalletURL: c.PumpPortal.WalletURL,
		IPFSURL:   c.PumpPortal.IPFSURL,
		Timeout:   c.PumpPortal.Timeout,
		Retries:   uint(c.PumpPortal.Retries),
	}
}

func (c *Config) RelayConfig() relay.Config {
	return relay.Config{
		RPCURL:        c.RPC.URL,
		RelayURL:      c.Relay.URL,
		ExplorerTxURL: c.Explorer.TxURL,
		SkipPreflight: c.RPC.SkipPreflight,
		Timeout:       c.Relay.Timeout,
	}
}

func (c *Config) ScheduleConfig() schedule.Config {
	return schedule.Config{
		Interval:     c.Schedule.Interval,
		Cooldown:     c.Schedule.Cooldown,
		StopTimeout:  c.Schedule.StopTimeout,
		TradeTimeout: c.Schedule.TradeTimeout,
	}
}

func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		WebhookURL: c.Notify.WebhookURL,
		Timeout:    c.Notify.Timeout,
		Retries:    uint(c.PumpPortal.Retries),
	}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		File:        c.Log.File,
		MaxSize:     c.Log.MaxSize,
		MaxAge:      c.Log.MaxAge,
		MaxBackups:  c.Log.MaxBackups,
		Compress:    c.Log.Compress,
		Development: c.Log.Development,
		Pretty:      c.Log.Pretty,
	}
}

// TradeDefaults builds the single-trade policy.
func (c *Config) TradeDefaults() (trade.Defaults, error) {
	amount, err := decimal.NewFromString(c.Trade.DefaultAmount)
	if err != nil {
		return trade.Defaults{}, fmt.Errorf("trade.default_amount: %w", err)
	}
	fee, err := decimal.NewFromString(c.Trade.DefaultPriorityFee)
	if err != nil {
		return trade.Defaults{}, fmt.Errorf("trade.default_priority_fee: %w", err)
	}
	pool, err := trade.ParsePool(c.Trade.DefaultPool)
	if err != nil {
		return trade.Defaults{}, fmt.Errorf("trade.default_pool: %w", err)
	}
	return trade.Defaults{
		Amount:           amount,
		DenominatedInSol: c.Trade.DenominatedInSol,
		Slippage:         c.Trade.DefaultSlippage,
		PriorityFee:      fee,
		Pool:             pool,
	}, nil
}

// BundlePolicy builds the launch policy.
func (c *Config) BundlePolicy() (bundle.Policy, error) {
	createFee, err := decimal.NewFromString(c.Bundle.CreatePriorityFee)
	if err != nil {
		return bundle.Policy{}, fmt.Errorf("bundle.create_priority_fee: %w", err)
	}
	buyFee, err := decimal.NewFromString(c.Bundle.BuyPriorityFee)
	if err != nil {
		return bundle.Policy{}, fmt.Errorf("bundle.buy_priority_fee: %w", err)
	}
	pool, err := trade.ParsePool(c.Bundle.Pool)
	if err != nil {
		return bundle.Policy{}, fmt.Errorf("bundle.pool: %w", err)
	}
	return bundle.Policy{
		CreateSlippage:    c.Bundle.CreateSlippage,
		CreatePriorityFee: createFee,
		BuySlippage:       c.Bundle.BuySlippage,
		BuyPriorityFee:    buyFee,
		Pool:              pool,
		DenominatedInSol:  c.Bundle.DenominatedInSol,
	}, nil
}

// InitialBuy is the creator's buy amount used by the wizard.
func (c *Config) InitialBuy() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Bundle.InitialBuy)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bundle.initial_buy: %w", err)
	}
	return d, nil
}
