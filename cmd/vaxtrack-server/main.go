package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaxtrack/vaxtrack/internal/config"
	"github.com/vaxtrack/vaxtrack/internal/domain/alerts"
	"github.com/vaxtrack/vaxtrack/internal/domain/application"
	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/domain/inventory"
	"github.com/vaxtrack/vaxtrack/internal/domain/scheduling"
	"github.com/vaxtrack/vaxtrack/internal/platform/auth"
	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/internal/platform/directory"
	"github.com/vaxtrack/vaxtrack/internal/platform/middleware"
	"github.com/vaxtrack/vaxtrack/internal/platform/notification"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaxtrack-server",
		Short: "Vaccination tracking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the vaccination API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories
	vaccineRepo := catalog.NewVaccineRepoPG(pool)
	batchRepo := inventory.NewBatchRepoPG(pool)
	schedulingRepo := scheduling.NewSchedulingRepoPG(pool)
	applicationRepo := application.NewApplicationRepoPG(pool)
	users := directory.NewUserDirectoryPG(pool)

	// Notifications
	tplEngine := notification.NewTemplateEngine()
	notifMgr := notification.NewNotificationManager(
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		tplEngine,
	)
	notifier := notification.NewManagerNotifier(notifMgr, logger)

	// Services
	catalogSvc := catalog.NewService(vaccineRepo)
	inventorySvc := inventory.NewService(batchRepo, catalogSvc)
	applicationSvc := application.NewService(
		applicationRepo, schedulingRepo, catalogSvc, inventorySvc,
		users, notifier,
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	)
	// The application service doubles as the scheduling engine's view of
	// already applied doses.
	schedulingSvc := scheduling.NewService(schedulingRepo, catalogSvc, applicationSvc, users, notifier)
	alertSvc := alerts.NewService(catalogSvc, inventorySvc, cfg.AlertHorizonDays)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.ResolvedAuthMode() == "development" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	inventory.NewHandler(inventorySvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	application.NewHandler(applicationSvc).RegisterRoutes(apiV1)
	alerts.NewHandler(alertSvc).RegisterRoutes(apiV1)
	notification.NewNotificationHandler(notifMgr).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
