// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const EnvPrefix = "PUMPBUNDLE"

type Config struct {
	PumpPortal PumpPortalConfig `mapstructure:"pumpportal"`
	RPC        RPCConfig        `mapstructure:"rpc"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Explorer   ExplorerConfig   `mapstructure:"explorer"`
	Trade      TradeConfig      `mapstructure:"trade"`
	Bundle     BundleConfig     `mapstructure:"bundle"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	API        APIConfig        `mapstructure:"api"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Events     EventsConfig     `mapstructure:"events"`
	License    LicenseConfig    `mapstructure:"license"`
	Log        LogConfig        `mapstructure:"log"`
}

type PumpPortalConfig struct {
	TradeURL  string        `mapstructure:"trade_url"`
	WalletURL string        `mapstructure:"wallet_url"`
	IPFSURL   string        `mapstructure:"ipfs_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
}

type RPCConfig struct {
	URL           string `mapstructure:"url"`
	SkipPreflight bool   `mapstructure:"skip_preflight"`
}

type RelayConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExplorerConfig struct {
	TxURL string `mapstructure:"tx_url"`
}

// TradeConfig holds single-trade defaults. Amounts stay strings until converted to decimals.
type TradeConfig struct {
	DefaultAmount      string `mapstructure:"default_amount"`
	DefaultSlippage    int    `mapstructure:"default_slippage"`
	DefaultPriorityFee string `mapstructure:"default_priority_fee"`
	DefaultPool        string `mapstructure:"default_pool"`
	DenominatedInSol   bool   `mapstructure:"denominated_in_sol"`
}

type BundleConfig struct {
	CreateSlippage    int    `mapstructure:"create_slippage"`
	CreatePriorityFee string `mapstructure:"create_priority_fee"`
	BuySlippage       int    `mapstructure:"buy_slippage"`
	BuyPriorityFee    string `mapstructure:"buy_priority_fee"`
	Pool              string `mapstructure:"pool"`
	DenominatedInSol  bool   `mapstructure:"denominated_in_sol"`
	InitialBuy        string `mapstructure:"initial_buy"`
}

type ScheduleConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
	TradeTimeout time.Duration `mapstructure:"trade_timeout"`
}

type APIConfig struct {
	Listen         string   `mapstructure:"listen"`
	PublicURL      string   `mapstructure:"public_url"`
	AuthToken      string   `mapstructure:"auth_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type LicenseConfig struct {
	Key          string `mapstructure:"key"`
	AccountID    string `mapstructure:"account_id"`
	ProductID    string `mapstructure:"product_id"`
	ProductToken string `mapstructure:"product_token"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
	Pretty      bool   `mapstructure:"pretty"`
}

var defaults = map[string]interface{}{
	"pumpportal.trade_url":  "https://pumpportal.fun/api/trade-local",
	"pumpportal.wallet_url": "https://pumpportal.fun/api/create-wallet",
	"pumpportal.ipfs_url":   "https://pump.fun/api/ipfs",
	"pumpportal.timeout":    30 * time.Second,
	"pumpportal.retries":    3,

	"rpc.url":            "https://api.mainnet-beta.solana.com",
	"rpc.skip_preflight": false,

	"relay.url":     "https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"relay.timeout": 30 * time.Second,

	"explorer.tx_url": "https://solscan.io/tx/",

	"trade.default_amount":       "0.001",
	"trade.default_slippage":     10,
	"trade.default_priority_fee": "0.00001",
	"trade.default_pool":         "raydium",
	"trade.denominated_in_sol":   true,

	"bundle.create_slippage":     10,
	"bundle.create_priority_fee": "0.0005",
	"bundle.buy_slippage":        50,
	"bundle.buy_priority_fee":    "0.0001",
	"bundle.pool":                "pump",
	"bundle.denominated_in_sol":  false,
	"bundle.initial_buy":         "1785356",

	"schedule.interval":      time.Hour,
	"schedule.cooldown":      time.Minute,
	"schedule.stop_timeout":  5 * time.Second,
	"schedule.trade_timeout": 2 * time.Minute,

	"api.listen":          ":10000",
	"api.public_url":      "",
	"api.auth_token":      "",
	"api.allowed_origins": []string{"*"},

	"notify.webhook_url": "",
	"notify.timeout":     10 * time.Second,

	"events.buffer_size": 256,

	"license.key":           "",
	"license.account_id":    "",
	"license.product_id":    "",
	"license.product_token": "",

	"log.level":       "info",
	"log.file":        "pumpbundle.log",
	"log.max_size":    100,
	"log.max_age":     7,
	"log.max_backups": 3,
	"log.compress":    true,
	"log.development": false,
	"log.pretty":      false,
}

// LoadConfig читает YAML (если есть), затем переменные окружения.
// Пустой path или отсутствующий файл дают конфигурацию по умолчанию.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// PORT задает только порт, адрес остается на всех интерфейсах
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"_API_LISTEN") == "" {
		cfg.API.Listen = ":" + port
	}

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	legacy := map[string]string{
		"api.auth_token": "TELEGRAM_BOT_TOKEN",
		"api.public_url": "WEBHOOK_HOST",
	}
	for key, env := range legacy {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	endpoints := map[string]string{
		"pumpportal.trade_url":  cfg.PumpPortal.TradeURL,
		"pumpportal.wallet_url": cfg.PumpPortal.WalletURL,
		"pumpportal.ipfs_url":   cfg.PumpPortal.IPFSURL,
		"rpc.url":               cfg.RPC.URL,
		"relay.url":             cfg.Relay.URL,
		"explorer.tx_url":       cfg.Explorer.TxURL,
	}
	for key, raw := range endpoints {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if cfg.Notify.WebhookURL != "" {
		if err := validateHTTPURL(cfg.Notify.WebhookURL); err != nil {
			return fmt.Errorf("invalid notify.webhook_url: %w", err)
		}
	}

	if err := validateNumericParams(cfg); err != nil {
		return err
	}

	for key, raw := range map[string]string{
		"trade.default_amount":       cfg.Trade.DefaultAmount,
		"trade.default_priority_fee": cfg.Trade.DefaultPriorityFee,
		"bundle.create_priority_fee": cfg.Bundle.CreatePriorityFee,
		"bundle.buy_priority_fee":    cfg.Bundle.BuyPriorityFee,
		"bundle.initial_buy":         cfg.Bundle.InitialBuy,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("invalid %s: must not be negative", key)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	for key, d := range map[string]time.Duration{
		"pumpportal.timeout":     cfg.PumpPortal.Timeout,
		"relay.timeout":          cfg.Relay.Timeout,
		"schedule.interval":      cfg.Schedule.Interval,
		"schedule.cooldown":      cfg.Schedule.Cooldown,
		"schedule.stop_timeout":  cfg.Schedule.StopTimeout,
		"schedule.trade_timeout": cfg.Schedule.TradeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", key)
		}
	}
	if cfg.PumpPortal.Retries < 1 {
		return errors.New("invalid pumpportal.retries: must be at least 1")
	}
	for key, s := range map[string]int{
		"trade.default_slippage": cfg.Trade.DefaultSlippage,
		"bundle.create_slippage": cfg.Bundle.CreateSlippage,
		"bundle.buy_slippage":    cfg.Bundle.BuySlippage,
	} {
		if s < 0 || s > 100 {
			return fmt.Errorf("invalid %s: must be within 0..100", key)
		}
	}
	if cfg.Events.BufferSize < 0 {
		return errors.New("invalid events.buffer_size")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("empty URL")
	}
	if !govalidator.IsURL(raw) {
		return errors.New("invalid URL format")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("invalid URL protocol")
	}
	return nil
}
