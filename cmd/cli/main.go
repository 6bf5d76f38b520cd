package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/cmd/cli/commands"
	"github.com/jakechorley/shift-optimizer/internal/config"
	"github.com/jakechorley/shift-optimizer/pkg/cache/rediscache"
	"github.com/jakechorley/shift-optimizer/pkg/clients/legacyclient"
	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/db"
	"github.com/jakechorley/shift-optimizer/pkg/postgres"
	"github.com/jakechorley/shift-optimizer/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftopt",
		Short: "Shift optimizer - plan shift grids and staff them fairly",
		Long:  `A CLI tool for planning shift grids, exploring rest intensities and assigning workers with an ILP solver.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.PlanCmd(app))
	rootCmd.AddCommand(commands.IntensitiesCmd(app))
	rootCmd.AddCommand(commands.OptimizeCmd(app))
	rootCmd.AddCommand(commands.LPCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.SolveWorkerCmd(app))
	rootCmd.AddCommand(commands.HistoryCmd(app))

	if err := rootCmd.Execute(); err != nil {
		app.Close()
		os.Exit(1)
	}
}

// initApp sets up config, logger, solver, cache and database
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Load configuration
	app.Cfg, err = config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, app.Cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))
	app.Logger.Debug("Configuration loaded successfully", zap.String("log_level", app.Cfg.LogLevel))

	// Initialize solver backend
	app.Logger.Info("Initializing solver backend", zap.String("backend", app.Cfg.Solver.Backend))
	backend, closeBackend, err := commands.NewBackend(app.Cfg.Solver, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create solver backend: %w", err)
	}
	app.OnClose(closeBackend)
	app.Engine = optimizer.NewEngine(backend, app.Cfg.Solver.Timeout, app.Logger)
	app.Logger.Debug("Solver backend initialized successfully")

	// Initialize intensity cache
	app.Logger.Info("Initializing intensity cache", zap.String("backend", app.Cfg.Cache.Backend))
	var cache intensity.Cache = intensity.NewMemoryCache()
	if app.Cfg.Cache.Backend == "redis" {
		redisCache, rdb, err := rediscache.Connect(app.Ctx, app.Cfg.Cache.Redis, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.OnClose(func() { rdb.Close() })
		cache = redisCache
	}
	app.Explorer = intensity.NewExplorer(cache, app.Cfg.Intensity.Candidates, app.Logger)
	app.Logger.Debug("Intensity cache initialized successfully")

	// Initialize legacy client
	if app.Cfg.Legacy.URL != "" {
		app.Logger.Info("Initializing legacy client", zap.String("url", app.Cfg.Legacy.URL))
		app.Legacy = legacyclient.NewClient(app.Cfg.Legacy.URL, app.Cfg.Legacy.Timeout, app.Logger)
	}

	// Initialize database
	app.Database, err = openDatabase(app.Ctx, app.Cfg.Database, app.Logger)
	if err != nil {
		return err
	}
	app.OnClose(app.Database.Close)
	app.Logger.Info("Database initialized successfully")

	return nil
}

// openDatabase connects to Postgres when a URL is configured and keeps runs in
// memory otherwise
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Database, error) {
	if cfg.URL == "" {
		logger.Info("No database configured, keeping runs in memory")
		return db.NewMemoryStore(), nil
	}

	logger.Info("Connecting to database")
	pg, err := postgres.NewDB(ctx, cfg.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := pg.RunMigrations(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pg, nil
}
