package domain

import (
	"fmt"
	"strings"
	"time"
)

// Address is a geocoded catalog entry (a facility the user may visit).
type Address struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zip_code,omitempty"`
	Country   string    `json:"country,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Point returns the address coordinates.
func (a Address) Point() GeoPoint {
	return GeoPoint{Lat: a.Latitude, Lon: a.Longitude}
}

// Validate checks the fields a catalog entry must always carry.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: address name is required", ErrInvalidArgument)
	}
	if err := a.Point().Validate(); err != nil {
		return fmt.Errorf("address %q: %w", a.Name, err)
	}
	return nil
}

// RankedAddress is an address together with its distance from a query origin.
type RankedAddress struct {
	Address  Address `json:"address"`
	Distance float64 `json:"distance"` // meters
}

// RouteLeg is one stop of a computed route. Distance and Duration are
// measured from the previous stop (the origin for the first leg).
type RouteLeg struct {
	Address  Address `json:"address"`
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Order    int     `json:"order"`
}

// Route is an ordered visiting sequence starting at Origin.
type Route struct {
	Origin          GeoPoint   `json:"origin"`
	Legs            []RouteLeg `json:"route"`
	TotalDistance   float64    `json:"total_distance"` // meters
	TotalDuration   float64    `json:"total_duration"` // seconds
	InitialDistance float64    `json:"initial_distance"`
	Passes          int        `json:"passes"`
	Improvements    int        `json:"improvements"`
	BudgetExhausted bool       `json:"budget_exhausted"`
}

// AddressIDs returns the stop IDs in visiting order.
func (r *Route) AddressIDs() []string {
	ids := make([]string, len(r.Legs))
	for i, l := range r.Legs {
		ids[i] = l.Address.ID
	}
	return ids
}

// AddressEventType classifies catalog changes.
type AddressEventType string

const (
	AddressCreated AddressEventType = "created"
	AddressUpdated AddressEventType = "updated"
	AddressDeleted AddressEventType = "deleted"
)

// AddressEvent is published whenever the catalog changes.
type AddressEvent struct {
	Type      AddressEventType `json:"type"`
	AddressID string           `json:"address_id"`
	Address   *Address         `json:"address,omitempty"`
	Time      time.Time        `json:"time"`
}

// RouteEvent is published after a route has been computed.
type RouteEvent struct {
	Origin        GeoPoint  `json:"origin"`
	AddressIDs    []string  `json:"address_ids"`
	TotalDistance float64   `json:"total_distance"`
	TotalDuration float64   `json:"total_duration"`
	Time          time.Time `json:"time"`
}
