package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"roundkids/internal/api"
	"roundkids/internal/config"
	"roundkids/internal/engine"
	"roundkids/internal/ingest"
	"roundkids/internal/logging"
	"roundkids/internal/source"
	"roundkids/internal/storage"
)

const version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roundkids",
	Short: "Clinical rounding alert service",
	Long: `roundkids merges clinical alerts from the checklist task, patient
alert, and categorized alert tables into one live-status view and
serves the status buckets, the full history, and the alert lifecycle
transitions over HTTP.`,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json)")
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(initDBCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(config.ResolvePath(configPath))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alert engine and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.LogLevel)

			store, err := storage.NewStore(cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("init storage: %w", err)
			}

			categorized := source.NewCategorizedReader(store)
			registry := source.NewRegistry(
				source.NewChecklistReader(store),
				source.NewPatientAlertReader(store),
				categorized,
			)
			eng := engine.New(registry, store, cfg.Directory, logger)
			lc := engine.NewLifecycle(registry, logger)

			ingest.StartKafka(ctx, cfg.Ingest.Kafka, categorized, logger)
			api.Start(ctx, cfg, eng, lc, logger, version)

			logger.Info("roundkids started",
				"version", version,
				"storage", cfg.Storage.Driver,
			)
			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the alert tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := storage.NewStore(cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("storage initialized:", cfg.Storage.Driver)
			return nil
		},
	}
}
