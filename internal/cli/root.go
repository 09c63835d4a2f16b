package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ogulcanaydogan/cloudsaver/internal/auth"
	"github.com/ogulcanaydogan/cloudsaver/internal/config"
	"github.com/ogulcanaydogan/cloudsaver/pkg/alerts"
	"github.com/ogulcanaydogan/cloudsaver/pkg/ingest"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"github.com/ogulcanaydogan/cloudsaver/pkg/sources"
	"github.com/ogulcanaydogan/cloudsaver/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cloudsaver",
	Short: "CloudSaver - cloud billing ingestion and cost reporting",
	Long: `CloudSaver pulls daily per-service costs from a billing provider,
normalizes and stores them, and reports totals from the CLI or an
authenticated query API.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.cloudsaver/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// failed logs err in full and returns what the user sees. Storage failures
// are reduced to the operation and error kind so driver messages and file
// paths stay in the logs.
func failed(logger *slog.Logger, op string, err error) error {
	kind := model.ErrorKind(err)
	logger.Error(op+" failed", "kind", kind, "error", err)
	if kind == "storage_unavailable" {
		return fmt.Errorf("%s failed: %s", op, kind)
	}
	return fmt.Errorf("%s failed: %s: %w", op, kind, err)
}

// initSources registers the mock generator, the Cost Explorer client when
// enabled, and a file replay source when path is set.
func initSources(ctx context.Context, cfg *config.Config, path string) (*sources.Registry, error) {
	registry := sources.NewRegistry()

	if err := registry.Register(sources.NewMock(cfg.Source.Mock.Services, cfg.Source.Mock.Seed)); err != nil {
		return nil, err
	}

	if cfg.Source.AWS.Enabled {
		ce, err := sources.NewCostExplorerFromProfile(ctx, cfg.Source.AWS.Profile)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(ce); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := registry.Register(sources.NewFile(path)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initPipeline creates a fully wired ingestion pipeline.
func initPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, file string) (*ingest.Pipeline, storage.Storage, error) {
	threshold, err := decimal.NewFromString(cfg.Alerts.DailyThresholdUSD)
	if err != nil {
		return nil, nil, fmt.Errorf("alerts.daily_threshold_usd: %w", err)
	}

	registry, err := initSources(ctx, cfg, file)
	if err != nil {
		return nil, nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	pipeline := ingest.NewPipeline(registry, store, logger,
		ingest.WithNotifiers(initNotifiers(cfg)...),
		ingest.WithDailyThreshold(threshold),
	)
	return pipeline, store, nil
}

// initVerifier picks static tokens when configured, else the identity service.
func initVerifier(cfg *config.Config) (auth.Verifier, error) {
	if len(cfg.Auth.StaticTokens) > 0 {
		tokens := make(map[string]string, len(cfg.Auth.StaticTokens))
		for _, t := range cfg.Auth.StaticTokens {
			tokens[t.Token] = t.Email
		}
		return auth.NewStaticVerifier(tokens), nil
	}
	if cfg.Auth.URL == "" {
		return nil, fmt.Errorf("no token verifier configured: set auth.url or auth.static_tokens")
	}
	return auth.NewHTTPVerifier(cfg.Auth.URL, cfg.Auth.APIKey), nil
}
