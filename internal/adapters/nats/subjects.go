package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// Subjects.
const (
	SubjectAddressPrefix  = "catalog.address."
	SubjectAddressAll     = SubjectAddressPrefix + ">"
	SubjectRouteOptimized = "routes.optimized"
	SubjectRoutesAll      = "routes.>"
)

// AddressSubject returns the subject for a catalog change, e.g.
// catalog.address.updated.
func AddressSubject(t domain.AddressEventType) string {
	return SubjectAddressPrefix + string(t)
}

// streams are created or updated on connect.
var streams = []nats.StreamConfig{
	{
		Name:      "CATALOG",
		Subjects:  []string{SubjectAddressAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "ROUTES",
		Subjects:  []string{SubjectRoutesAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("waypoint"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url)
}
