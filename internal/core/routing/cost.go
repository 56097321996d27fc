// Package routing ranks catalog addresses by proximity and sequences stops
// into a short open tour. Everything here is pure and safe for concurrent use.
package routing

import (
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/pkg/geospatial"
)

// DefaultAverageSpeedKmh approximates urban driving.
const DefaultAverageSpeedKmh = 40.0

// CostModel converts coordinates into travel distance and distances into
// travel time. Implementations must be symmetric and return 0 for equal points.
type CostModel interface {
	Distance(a, b domain.GeoPoint) float64 // meters
	Duration(meters float64) float64       // seconds
}

// HaversineModel measures great-circle distance and assumes a constant speed.
type HaversineModel struct {
	SpeedMPS float64
}

// NewHaversineModel returns a model travelling at speedKmh.
// Non-positive speeds fall back to DefaultAverageSpeedKmh.
func NewHaversineModel(speedKmh float64) HaversineModel {
	if speedKmh <= 0 {
		speedKmh = DefaultAverageSpeedKmh
	}
	return HaversineModel{SpeedMPS: speedKmh * 1000 / 3600}
}

// DefaultCostModel is the model used by FindNearest and OptimizeRoute.
var DefaultCostModel CostModel = NewHaversineModel(DefaultAverageSpeedKmh)

func (m HaversineModel) Distance(a, b domain.GeoPoint) float64 {
	return geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

func (m HaversineModel) Duration(meters float64) float64 {
	speed := m.SpeedMPS
	if speed <= 0 {
		speed = DefaultAverageSpeedKmh * 1000 / 3600
	}
	return meters / speed
}
