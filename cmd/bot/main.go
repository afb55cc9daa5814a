// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpbundle/internal/bot"
	"github.com/rovshanmuradov/pumpbundle/internal/config"
	"github.com/rovshanmuradov/pumpbundle/internal/logger"
)

var rootOpt struct {
	config  string
	envFile string
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:           "pumpbundle",
	Short:         "pump.fun token launch and trading bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// отсутствующий .env не ошибка
		if err := godotenv.Load(rootOpt.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", rootOpt.envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpt.config, "config", "c", "configs/config.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&rootOpt.envFile, "env", ".env", "dotenv file")
	rootCmd.PersistentFlags().BoolVarP(&rootOpt.verbose, "verbose", "v", false, "debug logging")
}

// setup loads the config and builds the logger and the wired app.
func setup() (*bot.App, *logger.Logger, error) {
	cfg, err := config.LoadConfig(rootOpt.config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	lc := cfg.LoggerConfig()
	if rootOpt.verbose {
		lc.Level = "debug"
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, nil, err
	}
	app, err := bot.NewApp(cfg, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	return app, log, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func syncLogger(log *logger.Logger) {
	if err := log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
	}
}
