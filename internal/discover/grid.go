package discover

import (
	"math"

	"github.com/twpayne/go-geom"
)

// degreesPerKM approximates one kilometer in latitude degrees. Longitude
// degrees shrink with latitude and are corrected per point.
const degreesPerKM = 1.0 / 111.0

// SearchPoints returns the area center followed by the ring of eight
// satellite points spaced spacingKM away. With a non-positive spacing only
// the center is returned.
func SearchPoints(area Area) []geom.Coord {
	center := geom.Coord{area.Lng, area.Lat}
	if area.SatelliteKM <= 0 {
		return []geom.Coord{center}
	}

	ring := satelliteRing(area).Coords()[0]
	// Drop the closing coordinate; the ring repeats its first point.
	return append([]geom.Coord{center}, ring[:len(ring)-1]...)
}

// satelliteRing builds the closed boundary polygon through the eight
// satellite centers, clockwise from due north.
func satelliteRing(area Area) *geom.Polygon {
	latStep := area.SatelliteKM * degreesPerKM
	lngStep := latStep / math.Cos(area.Lat*math.Pi/180)

	var ring []geom.Coord
	for _, d := range []struct{ dx, dy float64 }{
		{0, 1}, {1, 1}, {1, 0}, {1, -1},
		{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
		{0, 1},
	} {
		ring = append(ring, geom.Coord{
			area.Lng + d.dx*lngStep,
			area.Lat + d.dy*latStep,
		})
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}

// Bounds returns the lng/lat envelope covered by the area's search centers.
func Bounds(area Area) *geom.Bounds {
	if area.SatelliteKM <= 0 {
		return geom.NewBounds(geom.XY).Set(area.Lng, area.Lat, area.Lng, area.Lat)
	}
	return satelliteRing(area).Bounds()
}
