package routing

import (
	"fmt"
	"sort"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// FindNearest returns the limit addresses closest to origin, nearest first,
// using the default cost model.
func FindNearest(origin domain.GeoPoint, catalog []domain.Address, limit int) ([]domain.RankedAddress, error) {
	return FindNearestWith(DefaultCostModel, origin, catalog, limit)
}

// FindNearestWith ranks catalog by model.Distance from origin. Equal distances
// keep catalog order. The result has min(limit, len(catalog)) entries.
func FindNearestWith(model CostModel, origin domain.GeoPoint, catalog []domain.Address, limit int) ([]domain.RankedAddress, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := validateAddresses(catalog); err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedAddress, len(catalog))
	for i, a := range catalog {
		ranked[i] = domain.RankedAddress{Address: a, Distance: model.Distance(origin, a.Point())}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func validateAddresses(addrs []domain.Address) error {
	for i, a := range addrs {
		if err := a.Point().Validate(); err != nil {
			return fmt.Errorf("address %d (%s): %w", i, a.ID, err)
		}
	}
	return nil
}
