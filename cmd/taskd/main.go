package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/taskd/internal/config"
	"github.com/saltyorg/taskd/internal/database"
	"github.com/saltyorg/taskd/internal/logging"
	"github.com/saltyorg/taskd/internal/maintenance"
	"github.com/saltyorg/taskd/internal/metrics"
	"github.com/saltyorg/taskd/internal/web"
	"github.com/saltyorg/taskd/internal/web/handlers"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	port       int
	bind       string
	verbosity  int
	logFile    string
	skipSchema bool

	// Timeout flags (advanced)
	httpReadTimeout time.Duration
	httpIdleTimeout time.Duration
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
)

func main() {
	defaults := config.DefaultTimeoutConfig()

	rootCmd := &cobra.Command{
		Use:   "taskd",
		Short: "taskd - Task CRUD service",
		Long:  `taskd serves a JSON API for creating, listing, updating and deleting tasks backed by SQLite or PostgreSQL.`,
		RunE:  run,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated by size")

	// Flags
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (required, or set PORT env var)")
	rootCmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (or set BIND env var)")
	rootCmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "Do not create the task table on startup")

	// Advanced timeout flags
	rootCmd.Flags().DurationVar(&httpReadTimeout, "http-read-timeout", defaults.HTTPRead, "Maximum duration for reading a request")
	rootCmd.Flags().DurationVar(&httpIdleTimeout, "http-idle-timeout", defaults.HTTPIdle, "Keep-alive idle timeout")
	rootCmd.Flags().DurationVar(&requestTimeout, "request-timeout", defaults.Request, "Deadline for a single API request")
	rootCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", defaults.Shutdown, "Grace period for in-flight requests on shutdown")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:          "db-check",
		Short:        "Verify the database is reachable",
		SilenceUsage: true,
		RunE:         dbCheck,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() *config.Loader {
	loader := config.NewEnvLoader()
	logging.Apply(logging.LevelForVerbosity(verbosity), loader, logFile)
	return loader
}

// openDatabase resolves the store configuration and opens the engine
func openDatabase(ctx context.Context, loader *config.Loader) (*database.DB, error) {
	cfg, err := config.LoadDatabaseFromEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	log.Info().
		Str("backend", string(cfg.Backend)).
		Str("database", cfg.Redacted()).
		Msg("Connecting to database")

	return database.Open(ctx, cfg, database.LoadPoolConfig(loader))
}

func dbCheck(cmd *cobra.Command, args []string) error {
	loader := setupLogging()
	ctx := cmd.Context()

	db, err := openDatabase(ctx, loader)
	if err != nil {
		return err
	}
	defer db.Close()

	s := db.Factory().NewSession()
	defer s.Close()

	results, err := database.Check(ctx, s)
	if err != nil {
		return err
	}
	fmt.Printf("database ok (results: %v)\n", results)
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	// Check for PORT env var if flag not set
	if port == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			p, err := strconv.Atoi(envPort)
			if err != nil {
				return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
			}
			port = p
		}
	}
	if bind == "" {
		bind = os.Getenv("BIND")
	}

	// Validate port
	if port <= 0 || port > 65535 {
		return fmt.Errorf("--port flag or PORT environment variable is required")
	}

	// Validate bind address if provided
	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", bind)
		}
	}

	loader := setupLogging()

	log.Info().
		Str("version", version).
		Int("port", port).
		Str("bind", bind).
		Msg("Starting taskd")

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, loader)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if skipSchema {
		log.Debug().Msg("Skipping schema bootstrap")
	} else if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database schema")
	}

	scheduler := maintenance.New(db, loader.String("DB_MAINTENANCE_SCHEDULE", maintenance.DefaultSchedule))
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}
	defer scheduler.Stop()

	m := metrics.New(db.Stats)

	server := web.NewServer(db.Factory(), m, web.Options{
		Port: port,
		Bind: bind,
		Timeouts: &config.TimeoutConfig{
			HTTPRead: httpReadTimeout,
			HTTPIdle: httpIdleTimeout,
			Request:  requestTimeout,
			Shutdown: shutdownTimeout,
		},
		Version: handlers.VersionInfo{Version: version, Commit: commit, Date: date},
	})

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}

	log.Info().Msg("taskd stopped")
	return nil
}
