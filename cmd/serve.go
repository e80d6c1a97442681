package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"experts-geo/core/config"
	"experts-geo/core/loader"
	"experts-geo/core/logger"
	"experts-geo/core/middleware/auth"
	"experts-geo/core/middleware/rayid"
	"experts-geo/feature/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "experts-geo/docs/swagger"
)

// @title Aggie Experts Geo API
// @version 1.0
// @description Location collections and the relational expert index for the Aggie Experts map.
// @host localhost:8080
// @BasePath /

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the geo API server",
	Long: `Starts the HTTP server and initializes all enabled features.
When etl.schedule is set the location pipeline also runs periodically.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if !cfg.Server.IsValidDataSource() {
			logg.Fatal("Unsupported data source", zap.String("data_source", cfg.Server.DataSource))
		}

		// 3. Wire storage, caches and services
		a, err := newApp(cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize services", zap.Error(err))
		}
		logg = logg.With(zap.String("data_source", a.service.DataSource()))

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 4. Initialize Feature Loader
		mgr := loader.NewManager(logg)
		mgr.Register(geo.NewFeature(a.service, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Request metrics and CORS for the map frontend
		app.Use(a.metrics.Middleware())
		app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.CORSOrigins}))

		// 4. Public endpoints
		app.Get("/metrics", a.metrics.Handler())
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 5. Auth (Protect API)
		app.Use(auth.New(auth.Config{
			ApiKey: cfg.Server.ApiKey,
			Public: []string{"/metrics", "/swagger"},
		}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Scheduled ETL
		if cfg.ETL.Schedule != "" {
			scheduler, err := schedule(cfg.ETL.Schedule, a)
			if err != nil {
				logg.Fatal("Invalid ETL schedule", zap.String("schedule", cfg.ETL.Schedule), zap.Error(err))
			}
			scheduler.Start()
			defer scheduler.Stop()
			logg.Info("ETL scheduled", zap.String("schedule", cfg.ETL.Schedule))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

// schedule registers a periodic pipeline run. Overlapping runs are skipped.
func schedule(expr string, a *app) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(expr, func() {
		a.logger.Info("Running scheduled ETL job...")
		report, err := a.runETL(context.Background(), etlOptions{})
		if err != nil {
			a.logger.Error("Scheduled ETL failed", zap.Error(err))
			return
		}
		if report.Stats != nil {
			a.logger.Info("Scheduled ETL completed",
				zap.Int("locations", report.Stats.Locations),
				zap.Int("failed_geocodes", len(report.Stats.FailedGeocodes)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}
	return c, nil
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
