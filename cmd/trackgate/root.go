package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/config"
	"github.com/yanizio/trackgate/internal/database"
	"github.com/yanizio/trackgate/internal/disable"
	"github.com/yanizio/trackgate/internal/logger"
	"github.com/yanizio/trackgate/internal/site"
	"github.com/yanizio/trackgate/internal/vault"
)

var rootDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trackgate",
		Short:        "Per-site tracking switch",
		Long:         `Discard tracking requests for sites an administrator has disabled.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().StringVar(&rootDir, "root", "", "Project root holding conf/ (default: discovered)")

	root.AddCommand(newServeCmd(), newInstallCmd(), newSitesCmd())
	return root
}

// bootstrap loads configuration and installs the file logger.
func bootstrap(cmd *cobra.Command) error {
	ctx := cmd.Context()

	opts := []config.Option{
		config.WithSecrets(func(ctx context.Context) (config.SecretSource, error) {
			c, err := vault.New(ctx)
			if err != nil {
				return nil, err
			}
			return c, nil
		}),
	}
	if rootDir != "" {
		opts = append(opts, config.WithRoot(rootDir))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output of the sites commands is for humans; only serve tees.
	tee := cfg.Log.Tee || (cmd.Name() == "serve" && logger.RunningInTTY())
	if _, err := logger.New(logger.Options{
		Root:  cfg.Paths.Root,
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   tee,
	}); err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	return nil
}

// openDB opens the shared store using the loaded configuration.
func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	dsn, err := database.PrepareDSN(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return nil, err
	}
	opts := database.DefaultOptions()
	opts.MaxOpenConns = cfg.Database.MaxOpen
	opts.MaxIdleConns = cfg.Database.MaxIdle
	opts.Retries = 5
	opts.RetryBackoff = 2 * time.Second

	zap.S().Infow("connecting to store", "driver", cfg.Database.Driver)
	db, err := database.OpenWithOptions(ctx, cfg.Database.Driver, dsn, opts)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	return db, nil
}

// newStore builds the disable store over the site registry.
func newStore(db *sqlx.DB, cfg *config.Config) (*disable.Store, *site.Repository) {
	sites := site.NewRepository(db)
	return disable.NewStore(db, sites, disable.WithHardDelete(cfg.Store.HardDelete)), sites
}
