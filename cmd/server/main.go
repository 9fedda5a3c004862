package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rongwang/rentledger/internal/allocation"
	"github.com/rongwang/rentledger/internal/config"
	"github.com/rongwang/rentledger/internal/events"
	"github.com/rongwang/rentledger/internal/metrics"
	"github.com/rongwang/rentledger/internal/repository"
	"github.com/rongwang/rentledger/internal/service"
	"github.com/rongwang/rentledger/internal/summary"
	"github.com/rongwang/rentledger/internal/utils"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "rentledger",
		Short:         "Building ledgers, shared-cost allocation and portfolio summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			*cfg = *loaded
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file")
	root.AddCommand(
		newServeCmd(cfg),
		newSummaryCmd(cfg),
		newExportCmd(cfg),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// app is the wired dependency graph shared by every command
type app struct {
	log     *slog.Logger
	repo    repository.Repository
	svc     service.Service
	metrics *metrics.Metrics

	db        *sqlx.DB
	publisher events.Publisher
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("Failed to close publisher", slog.String("error", err.Error()))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newApp(cfg *config.Config) (*app, error) {
	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	a := &app{log: logger, metrics: metrics.New()}

	rules, err := allocation.LoadRulesFile(cfg.Rules.File)
	if err != nil {
		return nil, err
	}

	switch cfg.Store {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on exit")
		a.repo = repository.NewMemoryRepository()
	default:
		db, err := config.SetupDatabase(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		a.db = db
		a.repo = repository.NewPostgresRepository(db)
	}

	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		a.publisher = events.NewKafkaPublisher(brokers, cfg.Kafka.Topic, logger, a.metrics)
		logger.Info("Publishing ledger events", slog.Any("brokers", brokers), slog.String("topic", cfg.Kafka.Topic))
	} else {
		a.publisher = events.NoopPublisher{}
	}

	policy := summary.DefaultPolicy()
	if cfg.Rules.RentalMarker != "" {
		policy.RentalMarker = cfg.Rules.RentalMarker
	}
	if cfg.Rules.SalaryCategoryName != "" {
		policy.SalaryCategoryName = cfg.Rules.SalaryCategoryName
	}

	a.svc = service.NewDefaultService(a.repo, cfg.Auth.JWTSecret,
		service.WithRules(rules),
		service.WithPolicy(policy),
		service.WithPublisher(a.publisher),
		service.WithMetrics(a.metrics),
		service.WithLogger(logger),
		service.WithTokenDuration(time.Duration(cfg.Auth.TokenHours)*time.Hour),
	)
	return a, nil
}
