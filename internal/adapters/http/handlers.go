package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
)

const defaultPageSize = 50

// addressRequest is the create/update payload. zipCode is accepted as an
// alias for zip_code.
type addressRequest struct {
	Name         string   `json:"name"`
	Street       string   `json:"street"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	ZipCodeAlias string   `json:"zipCode"`
	Country      string   `json:"country"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Notes        string   `json:"notes"`
}

func (r addressRequest) toDomain(id string) (*domain.Address, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return nil, fmt.Errorf("%w: latitude and longitude are required", domain.ErrInvalidArgument)
	}
	zip := r.ZipCode
	if zip == "" {
		zip = r.ZipCodeAlias
	}
	return &domain.Address{
		ID:        id,
		Name:      r.Name,
		Street:    r.Street,
		City:      r.City,
		State:     r.State,
		ZipCode:   zip,
		Country:   r.Country,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Notes:     r.Notes,
	}, nil
}

// nearestRequest is the body of POST /v1/routes/nearest and /v1/routes/plan.
type nearestRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Limit     *int     `json:"limit"`
}

func (r nearestRequest) origin() (domain.GeoPoint, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: latitude and longitude are required", domain.ErrInvalidArgument)
	}
	return domain.GeoPoint{Lat: *r.Latitude, Lon: *r.Longitude}, nil
}

// limitOr returns the requested limit, or def when none was sent.
func (r nearestRequest) limitOr(def int) int {
	if r.Limit == nil {
		return def
	}
	return *r.Limit
}

// optimizeRequest is the body of POST /v1/routes/optimize.
type optimizeRequest struct {
	Start *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"start"`
	AddressIDs []string `json:"addressIds"`
}

func (r optimizeRequest) origin() (domain.GeoPoint, error) {
	if r.Start == nil || r.Start.Lat == nil || r.Start.Lng == nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: start.lat and start.lng are required", domain.ErrInvalidArgument)
	}
	return domain.GeoPoint{Lat: *r.Start.Lat, Lon: *r.Start.Lng}, nil
}

// nearestResponse is returned by POST /v1/routes/nearest.
type nearestResponse struct {
	Origin  domain.GeoPoint        `json:"origin"`
	Limit   int                    `json:"limit"`
	Results []domain.RankedAddress `json:"results"`
}

// parseBBox parses "minLat,minLon,maxLat,maxLon".
func parseBBox(s string) (domain.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Bounds{}, fmt.Errorf("%w: bbox must be minLat,minLon,maxLat,maxLon", domain.ErrInvalidArgument)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("%w: bbox value %q is not a number", domain.ErrInvalidArgument, p)
		}
		v[i] = f
	}
	b := domain.Bounds{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	return b, b.Validate()
}

// parseNear parses "lat,lon" plus a radius in meters.
func parseNear(near, radius string) (domain.GeoPoint, float64, error) {
	lat, lon, ok := strings.Cut(near, ",")
	if !ok {
		return domain.GeoPoint{}, 0, fmt.Errorf("%w: near must be lat,lon", domain.ErrInvalidArgument)
	}
	var p domain.GeoPoint
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return domain.GeoPoint{}, 0, fmt.Errorf("%w: near latitude %q is not a number", domain.ErrInvalidArgument, lat)
	}
	if p.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return domain.GeoPoint{}, 0, fmt.Errorf("%w: near longitude %q is not a number", domain.ErrInvalidArgument, lon)
	}
	r, err := strconv.ParseFloat(radius, 64)
	if err != nil {
		return domain.GeoPoint{}, 0, fmt.Errorf("%w: radius %q is not a number", domain.ErrInvalidArgument, radius)
	}
	return p, r, nil
}

// ListAddressesHandler returns one page of the catalog, every address
// inside ?bbox=, or every address within ?radius= meters of ?near=.
func ListAddressesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if raw := c.Query("near"); raw != "" {
			center, radius, err := parseNear(raw, c.Query("radius"))
			if err != nil {
				return errFromDomain(c, err)
			}
			addrs, err := deps.Addresses.WithinRadius(ctx, center, radius)
			if err != nil {
				return errFromDomain(c, err)
			}
			pg := Pagination{Offset: 0, Limit: len(addrs), Total: len(addrs)}
			return c.JSON(PaginatedResponse{Data: addrs, Pagination: pg})
		}

		if raw := c.Query("bbox"); raw != "" {
			b, err := parseBBox(raw)
			if err != nil {
				return errFromDomain(c, err)
			}
			addrs, err := deps.Addresses.WithinBounds(ctx, b)
			if err != nil {
				return errFromDomain(c, err)
			}
			pg := Pagination{Offset: 0, Limit: len(addrs), Total: len(addrs)}
			return c.JSON(PaginatedResponse{Data: addrs, Pagination: pg})
		}

		offset, limit := parsePage(c, defaultPageSize, usecases.MaxPageSize)
		addrs, total, err := deps.Addresses.Page(ctx, offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: addrs, Pagination: pg})
	}
}

// GetAddressHandler returns a single address.
func GetAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := deps.Addresses.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(a)
	}
}

// CreateAddressHandler adds an address to the catalog.
func CreateAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addressRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		a, err := req.toDomain("")
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Addresses.Create(c.UserContext(), a); err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/addresses/" + a.ID)
		return c.Status(fiber.StatusCreated).JSON(a)
	}
}

// UpdateAddressHandler replaces an existing address.
func UpdateAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addressRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		a, err := req.toDomain(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Addresses.Update(c.UserContext(), a); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(a)
	}
}

// DeleteAddressHandler removes an address.
func DeleteAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Addresses.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// NearestHandler ranks the catalog by distance from the posted origin.
// Body: {"latitude":49.28,"longitude":-123.12,"limit":5}
func NearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req nearestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		origin, err := req.origin()
		if err != nil {
			return errFromDomain(c, err)
		}
		limit := req.limitOr(deps.Routes.DefaultStops())

		ranked, err := deps.Routes.Nearest(c.UserContext(), origin, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(nearestResponse{Origin: origin, Limit: min(limit, deps.Routes.MaxStops()), Results: ranked})
	}
}

// OptimizeHandler orders the posted addresses into a short route.
// Body: {"start":{"lat":49.28,"lng":-123.12},"addressIds":["…","…"]}
func OptimizeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req optimizeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		origin, err := req.origin()
		if err != nil {
			return errFromDomain(c, err)
		}

		route, err := deps.Routes.Optimize(c.UserContext(), origin, req.AddressIDs)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}

// PlanHandler picks the nearest addresses and sequences them in one call.
func PlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req nearestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		origin, err := req.origin()
		if err != nil {
			return errFromDomain(c, err)
		}

		route, err := deps.Routes.Plan(c.UserContext(), origin, req.limitOr(deps.Routes.DefaultStops()))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}
