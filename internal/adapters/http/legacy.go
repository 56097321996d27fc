package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// Sunset for the unversioned /api surface.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the deprecated /api endpoints and their successors.
var LegacyRoutes = []DeprecatedRoute{
	{Path: "/api/addresses", SunsetDate: legacySunset, Alternative: "/v1/addresses"},
	{Path: "/api/routes/nearest", SunsetDate: legacySunset, Alternative: "/v1/routes/nearest"},
	{Path: "/api/routes/optimize", SunsetDate: legacySunset, Alternative: "/v1/routes/optimize"},
}

// legacyRanked flattens a ranked address the way /api/routes/nearest
// always returned it: the address fields plus a distance.
type legacyRanked struct {
	domain.Address
	Distance float64 `json:"distance"`
}

// legacyUpdateRequest carries the id in the body rather than the path.
type legacyUpdateRequest struct {
	ID string `json:"id"`
	addressRequest
}

// LegacyListAddressesHandler returns the whole catalog as a bare array.
func LegacyListAddressesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		addrs, err := deps.Addresses.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(addrs)
	}
}

// LegacyUpdateAddressHandler handles PUT /api/addresses with {"id":…, …}.
func LegacyUpdateAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req legacyUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ID == "" {
			return errBadRequest(c, "id is required")
		}
		a, err := req.toDomain(req.ID)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Addresses.Update(c.UserContext(), a); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(a)
	}
}

// LegacyDeleteAddressHandler handles DELETE /api/addresses?id=….
func LegacyDeleteAddressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Query("id")
		if id == "" {
			return errBadRequest(c, "id query parameter is required")
		}
		if err := deps.Addresses.Delete(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// LegacyNearestHandler answers /api/routes/nearest with a flat array.
func LegacyNearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req nearestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		origin, err := req.origin()
		if err != nil {
			return errFromDomain(c, err)
		}

		ranked, err := deps.Routes.Nearest(c.UserContext(), origin, req.limitOr(deps.Routes.DefaultStops()))
		if err != nil {
			return errFromDomain(c, err)
		}
		out := make([]legacyRanked, len(ranked))
		for i, r := range ranked {
			out[i] = legacyRanked{Address: r.Address, Distance: r.Distance}
		}
		return c.JSON(out)
	}
}
