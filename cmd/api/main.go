package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/waypoint-labs/waypoint/internal/adapters/http"
	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	natsadapter "github.com/waypoint-labs/waypoint/internal/adapters/nats"
	"github.com/waypoint-labs/waypoint/internal/adapters/postgres"
	"github.com/waypoint-labs/waypoint/internal/adapters/valkey"
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
	"github.com/waypoint-labs/waypoint/internal/pkg/config"
	"github.com/waypoint-labs/waypoint/internal/pkg/logging"
	"github.com/waypoint-labs/waypoint/internal/pkg/metrics"
	"github.com/waypoint-labs/waypoint/internal/pkg/telemetry"
)

const poolMetricsInterval = 15 * time.Second

func main() {
	cfg, err := config.Load("waypoint-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	deps := &http.Dependencies{CatalogSource: cfg.Catalog.Source}

	// Catalog store
	var repo ports.AddressRepository
	switch cfg.Catalog.Source {
	case config.CatalogFile:
		fileRepo, err := memory.OpenFile(cfg.Catalog.File)
		if err != nil {
			log.Fatalf("catalog file: %v", err)
		}
		repo = fileRepo
		slog.Info("catalog loaded from file", "path", cfg.Catalog.File)
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewAddressRepo(db)
		deps.DB = db
		go reportPoolStats(ctx, db)
	}

	// Cache (optional)
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, running without cache", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	// Event publisher (optional)
	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	addresses := usecases.NewAddressService(repo, cache, publisher)
	routes := usecases.NewRouteService(addresses, publisher, routeOptions(cfg.Routing))
	deps.Addresses = addresses
	deps.Routes = routes

	// Catalog changes made by other instances invalidate our cache entries
	if cache != nil {
		if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL); err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeAddressEvents(ctx, func(ctx context.Context, ev *domain.AddressEvent) error {
				addresses.InvalidateCache(ctx, ev.AddressID)
				return nil
			})
			if err != nil {
				slog.Warn("subscribe address events", "error", err)
			}
		}
	}

	// Raw NATS connection for WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Waypoint API",
	})
	app.Use(recover.New())
	if logging.ParseLevel(cfg.Log.Level) <= slog.LevelDebug {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "Link, ETag, Deprecation, Sunset, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.DefaultRouterConfig())

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "catalog", cfg.Catalog.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func routeOptions(r config.RoutingConfig) usecases.RouteOptions {
	return usecases.RouteOptions{
		AverageSpeedKmh: r.AverageSpeedKmh,
		MaxStops:        r.MaxStops,
		DefaultStops:    r.DefaultStops,
		MaxPasses:       r.MaxPasses,
		TimeBudget:      r.TimeBudget(),
	}
}

// reportPoolStats keeps the pgx pool gauges current until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(poolMetricsInterval)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Stat())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
