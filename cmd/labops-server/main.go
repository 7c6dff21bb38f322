package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/labops/labops/internal/config"
	"github.com/labops/labops/internal/domain/catalog"
	"github.com/labops/labops/internal/domain/collector"
	"github.com/labops/labops/internal/domain/inventory"
	"github.com/labops/labops/internal/domain/order"
	"github.com/labops/labops/internal/domain/patient"
	"github.com/labops/labops/internal/domain/result"
	"github.com/labops/labops/internal/platform/db"
	"github.com/labops/labops/internal/platform/locking"
	"github.com/labops/labops/internal/platform/metrics"
	"github.com/labops/labops/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labops-server",
		Short: "Home sample collection lab operations server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default from config)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default from config)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a demo dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			return seed(ctx, pool)
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	bom, err := inventory.LoadBOM(cfg.BOMFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load bill of materials")
	}

	locks := locking.NewKeyedMutex(cfg.LockTimeout())

	// repositories
	patientRepo := patient.NewRepoPG(pool)
	catalogRepo := catalog.NewRepoPG(pool)
	collectorRepo := collector.NewRepoPG(pool)
	inventoryRepo := inventory.NewRepoPG(pool)
	orderRepo := order.NewRepoPG(pool)
	resultRepo := result.NewRepoPG(pool)

	// services
	patientSvc := patient.NewService(patientRepo)
	catalogSvc := catalog.NewService(catalogRepo)
	collectorSvc := collector.NewService(collectorRepo, locks)
	collectorSvc.SetAssignmentSource(orderRepo)
	inventorySvc := inventory.NewService(inventoryRepo, bom, locks, logger)

	numbers := order.NewPGNumberSource(pool, cfg.OrderNumberPrefix)
	orderSvc := order.NewService(orderRepo, numbers, patientSvc, catalogSvc, collectorSvc, inventorySvc, locks, logger)
	resultSvc := result.NewService(resultRepo, orderSvc, locks, cfg.RequireDistinctReviewer)
	orderSvc.SetResultGate(resultSvc)

	// http server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler()

	m := metrics.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	api := e.Group("/api/v1")
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	collector.NewHandler(collectorSvc).RegisterRoutes(api)
	inventory.NewHandler(inventorySvc).RegisterRoutes(api)
	order.NewHandler(orderSvc).RegisterRoutes(api)
	result.NewHandler(resultSvc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool))
	collectorSvc := collector.NewService(collector.NewRepoPG(pool), locking.NewKeyedMutex(0))
	inventorySvc := inventory.NewService(inventory.NewRepoPG(pool), nil, locking.NewKeyedMutex(0), zerolog.Nop())

	patients := []*patient.Patient{
		{FullName: "Sara Ali", NationalID: "29001010112345", Phone: "+201000000001", Age: 34, Gender: "female", Address: "12 Nile St, Cairo"},
		{FullName: "Omar Hassan", NationalID: "28511230104567", Phone: "+201000000002", Age: 41, Gender: "male", Address: "5 Tahrir Sq, Giza"},
	}
	for _, p := range patients {
		if err := patientSvc.Register(ctx, p); err != nil {
			return fmt.Errorf("seed patient %s: %w", p.FullName, err)
		}
	}

	services := []*catalog.LabService{
		{Code: "CBC", Name: "Complete Blood Count", Category: "hematology", PriceCents: 15000, SampleType: catalog.SampleBlood, TurnaroundHours: 24},
		{Code: "HBA1C", Name: "Hemoglobin A1c", Category: "chemistry", PriceCents: 22000, SampleType: catalog.SampleBlood, TurnaroundHours: 24, Preparation: "no fasting required"},
		{Code: "UA", Name: "Urinalysis", Category: "chemistry", PriceCents: 8000, SampleType: catalog.SampleUrine, TurnaroundHours: 12},
		{Code: "STREP", Name: "Rapid Strep Test", Category: "microbiology", PriceCents: 12000, SampleType: catalog.SampleSwab, TurnaroundHours: 6},
	}
	for _, ls := range services {
		if err := catalogSvc.Create(ctx, ls); err != nil {
			return fmt.Errorf("seed service %s: %w", ls.Code, err)
		}
	}

	collectors := []*collector.Collector{
		{FullName: "Mona Fathy", Phone: "+201000000010"},
		{FullName: "Karim Adel", Phone: "+201000000011"},
	}
	for _, c := range collectors {
		if err := collectorSvc.Register(ctx, c); err != nil {
			return fmt.Errorf("seed collector %s: %w", c.FullName, err)
		}
	}

	items := []*inventory.Item{
		{Name: "blood draw kit", Category: inventory.CategoryConsumables, Unit: "kit", CurrentStock: 200, MinThreshold: 20},
		{Name: "specimen cup", Category: inventory.CategoryConsumables, Unit: "piece", CurrentStock: 300, MinThreshold: 30},
		{Name: "swab kit", Category: inventory.CategoryConsumables, Unit: "kit", CurrentStock: 150, MinThreshold: 15},
		{Name: "stool container", Category: inventory.CategoryConsumables, Unit: "piece", CurrentStock: 100, MinThreshold: 10},
		{Name: "centrifuge", Category: inventory.CategoryEquipment, Unit: "unit", CurrentStock: 3, MinThreshold: 1},
	}
	for _, i := range items {
		if err := inventorySvc.CreateItem(ctx, i); err != nil {
			return fmt.Errorf("seed item %s: %w", i.Name, err)
		}
	}

	fmt.Printf("Seeded %d patients, %d services, %d collectors, %d inventory items.\n",
		len(patients), len(services), len(collectors), len(items))
	return nil
}
