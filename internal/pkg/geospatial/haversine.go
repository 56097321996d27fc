package geospatial

import "math"

// EarthRadiusMeters is the mean Earth radius used by all distance helpers.
const EarthRadiusMeters = 6371000.0

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a slightly outside [0, 1] for antipodal points.
	a = math.Max(0, math.Min(1, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
// The box is clamped to valid coordinate ranges; use RadiusBoxes for searches
// that may cross the antimeridian.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegreeLat

	cosLat := math.Cos(toRad(lat))
	lonDelta := 180.0
	if cosLat > 1e-9 {
		lonDelta = math.Min(180, radiusMeters/(metersPerDegreeLat*cosLat))
	}

	minLat = math.Max(-90, lat-latDelta)
	maxLat = math.Min(90, lat+latDelta)
	minLon = math.Max(-180, lon-lonDelta)
	maxLon = math.Min(180, lon+lonDelta)
	return minLat, minLon, maxLat, maxLon
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// RadiusBoxes returns rectangles that together cover every point within
// radiusMeters of (lat, lon). A circle crossing the antimeridian yields two
// boxes, one each side of it. A circle reaching a pole covers all longitudes.
func RadiusBoxes(lat, lon, radiusMeters float64) []Box {
	latDelta := radiusMeters / metersPerDegreeLat
	minLat := math.Max(-90, lat-latDelta)
	maxLat := math.Min(90, lat+latDelta)
	if lat+latDelta >= 90 || lat-latDelta <= -90 {
		return []Box{{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: 180}}
	}

	// Parallels shrink away from the equator, so size the span at the
	// box edge farthest from it.
	cosLat := math.Cos(toRad(math.Max(math.Abs(minLat), math.Abs(maxLat))))
	lonDelta := radiusMeters / (metersPerDegreeLat * cosLat)
	if lonDelta >= 180 {
		return []Box{{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: 180}}
	}

	lo, hi := lon-lonDelta, lon+lonDelta
	switch {
	case lo < -180:
		return []Box{
			{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: hi},
			{MinLat: minLat, MinLon: lo + 360, MaxLat: maxLat, MaxLon: 180},
		}
	case hi > 180:
		return []Box{
			{MinLat: minLat, MinLon: lo, MaxLat: maxLat, MaxLon: 180},
			{MinLat: minLat, MinLon: -180, MaxLat: maxLat, MaxLon: hi - 360},
		}
	default:
		return []Box{{MinLat: minLat, MinLon: lo, MaxLat: maxLat, MaxLon: hi}}
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
