package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/namaste-fhir/termservice/internal/config"
	"github.com/namaste-fhir/termservice/internal/domain/bundle"
	"github.com/namaste-fhir/termservice/internal/domain/conceptmap"
	"github.com/namaste-fhir/termservice/internal/domain/ingest"
	"github.com/namaste-fhir/termservice/internal/domain/provenance"
	"github.com/namaste-fhir/termservice/internal/domain/terminology"
	"github.com/namaste-fhir/termservice/internal/platform/db"
	"github.com/namaste-fhir/termservice/internal/platform/index"
	"github.com/namaste-fhir/termservice/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termservice",
		Short: "NAMASTE / ICD-11 TM2 terminology mediation service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(syncConceptMapCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the terminology API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <csv-file>",
		Short: "Ingest a NAMASTE CSV export into the snapshot and search index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			esClient, err := index.NewClient(cfg.ESHost, cfg.ESIndex, logger)
			if err != nil {
				return fmt.Errorf("elasticsearch client: %w", err)
			}

			ctx := context.Background()
			store := ingest.NewSnapshotStore(cfg.DataDir)
			svc := ingest.NewService(cfg.NamasteSystem, logger)

			report, err := svc.Run(ctx, f, esClient, store)
			if err != nil {
				return err
			}
			if err := esClient.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("index refresh failed")
			}

			audit := auditRepo(ctx, cfg, logger)
			recordAudit(ctx, audit, provenance.ActivityIngest,
				fmt.Sprintf("version=%s concepts=%d indexed=%d failed=%d", report.Version, report.Concepts, report.Indexed, report.IndexFailed), logger)

			fmt.Printf("Ingested %d concept(s), skipped %d, indexed %d (%d failed), version %s\n",
				report.Concepts, report.Skipped, report.Indexed, report.IndexFailed, report.Version)
			return nil
		},
	}
}

func syncConceptMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-conceptmap",
		Short: "Synthesize the NAMASTE to TM2 ConceptMap from the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var mapper conceptmap.Mapper = conceptmap.SimulatedMapper{}
			if cfg.CrossMapMode == config.CrossMapWHO {
				mapper = conceptmap.NewWHOMapper(cfg.WHOBaseURL, 10*time.Second)
			}

			snapshots := ingest.NewSnapshotStore(cfg.DataDir)
			store := conceptmap.NewStore(cfg.DataDir)
			svc := conceptmap.NewService(mapper, snapshots, store, cfg.NamasteSystem, cfg.TM2System, cfg.CrossMapLimit, logger)

			ctx := context.Background()
			cm, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			elements := len(cm.Group[0].Element)
			audit := auditRepo(ctx, cfg, logger)
			recordAudit(ctx, audit, provenance.ActivityConceptMapSync,
				fmt.Sprintf("mode=%s elements=%d", cfg.CrossMapMode, elements), logger)

			fmt.Printf("Synthesized ConceptMap with %d element(s), version %s\n", elements, cm.Version)
			return nil
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
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is not set")
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
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is not set")
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

// auditRepo opens the optional provenance store. Without DATABASE_URL
// the service runs index-only and audit persistence is disabled.
func auditRepo(ctx context.Context, cfg *config.Config, logger zerolog.Logger) provenance.Repository {
	if !cfg.HasDatabase() {
		return nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Warn().Err(err).Msg("database unavailable, audit disabled")
		return nil
	}
	return provenance.NewRepoPG(pool)
}

func recordAudit(ctx context.Context, audit provenance.Repository, activity, detail string, logger zerolog.Logger) {
	if audit == nil {
		return
	}
	rec := &provenance.Record{
		ID:           uuid.New(),
		Activity:     activity,
		AgentDisplay: provenance.AgentDisplay,
		Recorded:     time.Now().UTC(),
		Detail:       detail,
	}
	if err := audit.Create(ctx, rec); err != nil {
		logger.Warn().Err(err).Str("activity", activity).Msg("failed to persist provenance record")
	}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	// Optional database: provenance persistence only.
	var audit provenance.Repository
	if cfg.HasDatabase() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		audit = provenance.NewRepoPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		logger.Info().Msg("no DATABASE_URL configured, provenance persistence disabled")
	}

	esClient, err := index.NewClient(cfg.ESHost, cfg.ESIndex, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not ensure search index, continuing")
	}

	snapshotStore := ingest.NewSnapshotStore(cfg.DataDir)
	conceptMapStore := conceptmap.NewStore(cfg.DataDir)

	termSvc := terminology.NewService(esClient, snapshotStore, cfg.NamasteSystem, cfg.SearchTimeout, logger)
	bundleSvc := bundle.NewService(cfg.NamasteSystem, audit, logger)

	var mapper conceptmap.Mapper = conceptmap.SimulatedMapper{}
	if cfg.CrossMapMode == config.CrossMapWHO {
		mapper = conceptmap.NewWHOMapper(cfg.WHOBaseURL, 10*time.Second)
	}
	conceptMapSvc := conceptmap.NewService(mapper, snapshotStore, conceptMapStore, cfg.NamasteSystem, cfg.TM2System, cfg.CrossMapLimit, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	fhirGroup := e.Group("/fhir")

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	terminology.NewHandler(termSvc).RegisterRoutes(e, fhirGroup)
	bundle.NewHandler(bundleSvc).RegisterRoutes(fhirGroup)
	conceptmap.NewHandler(conceptMapSvc).RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
