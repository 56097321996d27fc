// Package catalog reads, writes and generates address catalogs outside the
// service layer: CSV interchange and synthetic seed data.
package catalog

import (
	"bytes"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// City is a seed centre.
type City struct {
	Name  string
	State string
	Lat   float64
	Lon   float64
}

// Cities are the centres synthetic addresses are scattered around.
var Cities = []City{
	{Name: "Vancouver", State: "BC", Lat: 49.2827, Lon: -123.1207},
	{Name: "Surrey", State: "BC", Lat: 49.1913, Lon: -122.8490},
	{Name: "Burnaby", State: "BC", Lat: 49.2488, Lon: -122.9805},
	{Name: "Richmond", State: "BC", Lat: 49.1666, Lon: -123.1336},
	{Name: "Seattle", State: "WA", Lat: 47.6062, Lon: -122.3321},
	{Name: "Portland", State: "OR", Lat: 45.5155, Lon: -122.6789},
	{Name: "San Francisco", State: "CA", Lat: 37.7749, Lon: -122.4194},
	{Name: "Los Angeles", State: "CA", Lat: 34.0522, Lon: -118.2437},
}

var businessTypes = []string{
	"Coffee Shop", "Restaurant", "Retail Store", "Office", "Warehouse",
	"Medical Clinic", "Pharmacy", "Bank", "Gym", "Salon",
}

var streets = []string{
	"Main St", "Oak Ave", "Maple Dr", "Pine Rd", "Cedar Ln",
	"Elm St", "Broadway", "Park Ave", "Market St", "First Ave",
}

// Jitter is the full width, in degrees, of the box around each city.
const Jitter = 0.5

// PriorityNote marks every tenth generated address.
const PriorityNote = "Priority customer"

// Generate returns n synthetic addresses. The same seed yields the same
// catalog, IDs included.
func Generate(n int, seed uint64) []domain.Address {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idSource := rand.New(rand.NewPCG(seed, seed+1))

	out := make([]domain.Address, n)
	for i := range out {
		city := Cities[r.IntN(len(Cities))]
		kind := businessTypes[r.IntN(len(businessTypes))]
		street := streets[r.IntN(len(streets))]

		var raw [16]byte
		for j := range raw {
			raw[j] = byte(idSource.UintN(256))
		}
		id, _ := uuid.NewRandomFromReader(bytes.NewReader(raw[:]))

		a := domain.Address{
			ID:        id.String(),
			Name:      fmt.Sprintf("%s %d", kind, i+1),
			Street:    fmt.Sprintf("%d %s", r.IntN(9999)+1, street),
			City:      city.Name,
			State:     city.State,
			ZipCode:   fmt.Sprintf("%d", r.IntN(90000)+10000),
			Country:   "USA",
			Latitude:  city.Lat + (r.Float64()-0.5)*Jitter,
			Longitude: city.Lon + (r.Float64()-0.5)*Jitter,
		}
		if i%10 == 0 {
			a.Notes = PriorityNote
		}
		out[i] = a
	}
	return out
}
