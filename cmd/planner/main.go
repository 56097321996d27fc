package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	natsadapter "github.com/waypoint-labs/waypoint/internal/adapters/nats"
	"github.com/waypoint-labs/waypoint/internal/adapters/postgres"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
	"github.com/waypoint-labs/waypoint/internal/pkg/config"
	"github.com/waypoint-labs/waypoint/internal/pkg/logging"
	"github.com/waypoint-labs/waypoint/internal/workflows"
)

func main() {
	cfg, err := config.Load("waypoint-planner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	var repo ports.AddressRepository
	switch cfg.Catalog.Source {
	case config.CatalogFile:
		r, err := memory.OpenFile(cfg.Catalog.File)
		if err != nil {
			log.Fatalf("catalog file: %v", err)
		}
		repo = r
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewAddressRepo(db)
	}

	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, planned routes will not be published", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	addresses := usecases.NewAddressService(repo, nil, nil)
	routes := usecases.NewRouteService(addresses, publisher, usecases.RouteOptions{
		AverageSpeedKmh: cfg.Routing.AverageSpeedKmh,
		MaxStops:        cfg.Routing.MaxStops,
		DefaultStops:    cfg.Routing.DefaultStops,
		MaxPasses:       cfg.Routing.MaxPasses,
		TimeBudget:      cfg.Routing.TimeBudget(),
	})

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RoutePlanWorkflow)
	w.RegisterActivity(&workflows.Activities{Routes: routes})

	slog.Info("planner worker started", "task_queue", cfg.Temporal.TaskQueue, "catalog", cfg.Catalog.Source)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
