package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/waypoint-labs/waypoint/internal/core/usecases"
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Addresses *usecases.AddressService
	Routes    *usecases.RouteService

	// Readiness checks. DB is nil when the catalog is file-backed.
	DB    Pinger
	Cache Pinger

	// NATS feeds the WebSocket relay; nil disables /ws.
	NATS *nats.Conn

	// CatalogSource is reported by /v1/ready ("postgres" or "file").
	CatalogSource string
}
