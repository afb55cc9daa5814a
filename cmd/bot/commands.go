package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bot"
	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP command surface and recurring purchases",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Starting pumpbundle", zap.String("listen", app.Config.API.Listen))
		return bot.NewRunner(app, log.Logger).Run(ctx)
	},
}

var tradeOpt struct {
	action    string
	mint      string
	amount    string
	pool      string
	slippage  int
	graduated bool
}

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "submit a single buy or sell with the key from PUMPBUNDLE_PRIVATE_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(log)
		defer closeApp(app)

		w, err := wallet.NewWallet(os.Getenv("PUMPBUNDLE_PRIVATE_KEY"))
		if err != nil {
			return fmt.Errorf("PUMPBUNDLE_PRIVATE_KEY: %w", err)
		}
		defer w.Discard()

		params := trade.Params{
			Action: tradeOpt.action,
			Mint:   tradeOpt.mint,
			Amount: tradeOpt.amount,
			Pool:   tradeOpt.pool,
		}
		if cmd.Flags().Changed("slippage") {
			params.Slippage = &tradeOpt.slippage
		}
		if params.Pool == "" && !tradeOpt.graduated {
			params.Pool = string(trade.PoolPump)
		}
		intent, err := app.Builder.Build(params)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		res := app.Engine.SubmitSingleTrade(ctx, "cli", w, intent)
		if err := printJSON(cmd, resultView(res)); err != nil {
			return err
		}
		if !res.Success {
			return errors.New("trade failed")
		}
		return nil
	},
}

var launchOpt struct {
	wallets     string
	name        string
	symbol      string
	description string
	twitter     string
	telegram    string
	website     string
	image       string
	amount      string
}

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "create a token and buy it from every wallet in one bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(log)
		defer closeApp(app)

		wallets, err := wallet.LoadWallets(launchOpt.wallets)
		if err != nil {
			return err
		}
		defer func() {
			for _, nw := range wallets {
				nw.Wallet.Discard()
			}
		}()

		amount := decimal.Zero
		if launchOpt.amount != "" {
			if amount, err = decimal.NewFromString(launchOpt.amount); err != nil {
				return fmt.Errorf("invalid --amount: %w", err)
			}
		} else if amount, err = app.Config.InitialBuy(); err != nil {
			return err
		}

		img, err := readImage(launchOpt.image)
		if err != nil {
			return err
		}
		md := bundle.Metadata{
			Name:        launchOpt.name,
			Symbol:      launchOpt.symbol,
			Description: launchOpt.description,
			Twitter:     launchOpt.twitter,
			Telegram:    launchOpt.telegram,
			Website:     launchOpt.website,
			Image:       img,
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		report, err := app.LaunchWithWallets(ctx, md, wallets, amount)
		if report.Mint != "" {
			view := resultView(report.Result)
			view["mint"] = report.Mint
			if perr := printJSON(cmd, view); perr != nil {
				return perr
			}
		}
		return err
	},
}

var newWalletCmd = &cobra.Command{
	Use:   "new-wallet",
	Short: "generate a wallet through pumpportal",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, log, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(log)
		defer closeApp(app)

		gen, err := app.Portal.CreateWallet(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{
			"wallet_public_key": gen.WalletPublicKey,
			"private_key":       gen.PrivateKey,
			"api_key":           gen.APIKey,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, tradeCmd, launchCmd, newWalletCmd)

	tradeCmd.Flags().StringVar(&tradeOpt.action, "action", "buy", "buy or sell")
	tradeCmd.Flags().StringVar(&tradeOpt.mint, "mint", "", "token mint address")
	tradeCmd.Flags().StringVar(&tradeOpt.amount, "amount", "", "amount (default from config)")
	tradeCmd.Flags().StringVar(&tradeOpt.pool, "pool", "", "venue (default from config)")
	tradeCmd.Flags().IntVar(&tradeOpt.slippage, "slippage", 10, "slippage percent")
	tradeCmd.Flags().BoolVar(&tradeOpt.graduated, "graduated", true, "token has left the bonding curve")
	_ = tradeCmd.MarkFlagRequired("mint")

	launchCmd.Flags().StringVar(&launchOpt.wallets, "wallets", "configs/wallets.yaml", "wallets file, first wallet creates")
	launchCmd.Flags().StringVar(&launchOpt.name, "name", "", "token name")
	launchCmd.Flags().StringVar(&launchOpt.symbol, "symbol", "", "token symbol")
	launchCmd.Flags().StringVar(&launchOpt.description, "description", "", "token description")
	launchCmd.Flags().StringVar(&launchOpt.twitter, "twitter", "", "twitter link")
	launchCmd.Flags().StringVar(&launchOpt.telegram, "telegram", "", "telegram link")
	launchCmd.Flags().StringVar(&launchOpt.website, "website", "", "website")
	launchCmd.Flags().StringVar(&launchOpt.image, "image", "", "image file")
	launchCmd.Flags().StringVar(&launchOpt.amount, "amount", "", "buy amount for wallets without their own (default bundle.initial_buy)")
	for _, f := range []string{"name", "symbol", "image"} {
		_ = launchCmd.MarkFlagRequired(f)
	}
}

func readImage(path string) (bundle.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bundle.Image{}, fmt.Errorf("read image: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return bundle.Image{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

func resultView(res relay.Result) map[string]any {
	v := map[string]any{"mode": res.Mode, "success": res.Success}
	for k, s := range map[string]string{
		"signature":    res.Signature,
		"bundle_id":    res.BundleID,
		"explorer_url": res.ExplorerURL,
		"error":        res.ErrorDetail(),
	} {
		if s != "" {
			v[k] = s
		}
	}
	return v
}

func closeApp(app *bot.App) {
	_ = app.Scheduler.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Bus.Shutdown(ctx)
}
