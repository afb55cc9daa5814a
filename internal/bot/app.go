// internal/bot/app.go
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/api"
	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/config"
	"github.com/rovshanmuradov/pumpbundle/internal/engine"
	"github.com/rovshanmuradov/pumpbundle/internal/events"
	"github.com/rovshanmuradov/pumpbundle/internal/metrics"
	"github.com/rovshanmuradov/pumpbundle/internal/notify"
	"github.com/rovshanmuradov/pumpbundle/internal/pumpportal"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/schedule"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/txpipeline"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
	"github.com/rovshanmuradov/pumpbundle/internal/wizard"
)

var ErrNoCredential = errors.New("set your private key before creating a token")

// App holds every wired component.
type App struct {
	Config    *config.Config
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
	Bus       *events.Bus
	Notifier  *notify.Notifier
	Store     *wallet.Store
	Portal    *pumpportal.Client
	Builder   *trade.Builder
	Engine    *engine.Engine
	Scheduler *schedule.Scheduler
	Wizard    *wizard.Manager
	API       *api.Server

	initialBuy decimal.Decimal
	logger     *zap.Logger
}

// NewApp wires the components from cfg. Nothing is started.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	defaults, err := cfg.TradeDefaults()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.BundlePolicy()
	if err != nil {
		return nil, err
	}
	initialBuy, err := cfg.InitialBuy()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	bus := events.NewBus(logger, cfg.Events.BufferSize)
	notifier := notify.New(cfg.NotifyConfig(), logger)
	notifier.Attach(bus)

	portal := pumpportal.NewClient(cfg.PortalConfig(), logger)
	submitter := relay.New(cfg.RelayConfig(), logger, relay.WithRecorder(collector))
	eng := engine.New(
		portal,
		bundle.NewComposer(portal, policy, logger),
		txpipeline.New(logger),
		submitter,
		logger,
		engine.WithPublisher(bus),
		engine.WithUploadRecorder(collector),
		engine.WithQuoteEndpoint(cfg.PumpPortal.TradeURL),
	)

	store := wallet.NewStore(logger)
	sched := schedule.New(cfg.ScheduleConfig(), eng, store, logger,
		schedule.WithPublisher(bus),
		schedule.WithRecorder(collector))

	app := &App{
		Config:     cfg,
		Registry:   reg,
		Metrics:    collector,
		Bus:        bus,
		Notifier:   notifier,
		Store:      store,
		Portal:     portal,
		Builder:    trade.NewBuilder(defaults),
		Engine:     eng,
		Scheduler:  sched,
		initialBuy: initialBuy,
		logger:     logger.Named("app"),
	}
	app.Wizard = wizard.NewManager(wizard.LauncherFunc(app.launchForUser), logger)
	app.API = api.New(api.Config{
		Listen:         cfg.API.Listen,
		AuthToken:      cfg.API.AuthToken,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, api.Deps{
		Store:     store,
		Builder:   app.Builder,
		Trader:    eng,
		Scheduler: sched,
		Wizard:    app.Wizard,
		Wallets:   portal,
		Gatherer:  reg,
	}, logger)
	return app, nil
}

// launchForUser creates a token with the user's stored wallet as the only buyer.
func (a *App) launchForUser(ctx context.Context, userID string, md bundle.Metadata) (wizard.LaunchReport, error) {
	w, ok := a.Store.Get(userID)
	if !ok {
		return wizard.LaunchReport{}, ErrNoCredential
	}
	return a.Launch(ctx, userID, md, []bundle.Buyer{{Wallet: w, Amount: a.initialBuy}})
}

// Launch composes and submits a bundle for buyers. The first buyer creates the token.
func (a *App) Launch(ctx context.Context, userID string, md bundle.Metadata, buyers []bundle.Buyer) (wizard.LaunchReport, error) {
	req, res, err := a.Engine.Launch(ctx, userID, md, buyers)
	if err != nil {
		return wizard.LaunchReport{}, err
	}
	report := wizard.LaunchReport{Mint: req.Mint(), Result: res}
	if !res.Success {
		return report, fmt.Errorf("bundle submission failed: %w", res.Err)
	}
	return report, nil
}

// LaunchWithWallets is the multi-wallet launch: one buy leg per wallet, in order.
// A wallet without its own amount buys fallback.
func (a *App) LaunchWithWallets(ctx context.Context, md bundle.Metadata, wallets []wallet.Named, fallback decimal.Decimal) (wizard.LaunchReport, error) {
	if len(wallets) == 0 {
		return wizard.LaunchReport{}, errors.New("no wallets to launch with")
	}
	buyers := launchBuyers(wallets, fallback)
	a.logger.Info("Launching with wallets", zap.Int("wallets", len(wallets)), zap.String("symbol", md.Symbol))
	return a.Launch(ctx, "cli", md, buyers)
}

func launchBuyers(wallets []wallet.Named, fallback decimal.Decimal) []bundle.Buyer {
	buyers := make([]bundle.Buyer, 0, len(wallets))
	for _, nw := range wallets {
		amount := nw.Amount
		if amount.IsZero() {
			amount = fallback
		}
		buyers = append(buyers, bundle.Buyer{Wallet: nw.Wallet, Amount: amount})
	}
	return buyers
}
