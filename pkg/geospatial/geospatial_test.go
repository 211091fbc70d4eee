package geospatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	gcc := Box(12, 32, 34, 60)
	assert.True(t, Contains(gcc, 25.2, 55.3))  // Dubai
	assert.False(t, Contains(gcc, 48.8, 2.35)) // Paris
	assert.True(t, Contains(gcc, 12, 34))
}

func TestCentroidAndSpread(t *testing.T) {
	points := []orb.Point{Point(24, 54), Point(26, 56)}

	c := CalculateCentroid(points)
	assert.InDelta(t, 25.0, c.Lat(), 1e-9)
	assert.InDelta(t, 55.0, c.Lon(), 1e-9)

	latSpread, lonSpread := Spread(points)
	assert.InDelta(t, 2.0, latSpread, 1e-9)
	assert.InDelta(t, 2.0, lonSpread, 1e-9)

	latSpread, lonSpread = Spread(nil)
	assert.Zero(t, latSpread)
	assert.Zero(t, lonSpread)
}

func TestMaxDistanceKm(t *testing.T) {
	// one degree of latitude is roughly 111 km
	d := MaxDistanceKm([]orb.Point{Point(0, 0), Point(1, 0), Point(0.5, 0)})
	assert.InDelta(t, 111.2, d, 0.5)
	assert.Zero(t, MaxDistanceKm([]orb.Point{Point(1, 1)}))
}

func TestConvertToHectares(t *testing.T) {
	assert.Equal(t, 1.5, ConvertToHectares(15000))
}

func TestBoundingAreaHa(t *testing.T) {
	// a one-degree cell at the equator is about 12,390 km2
	area := BoundingAreaHa([]orb.Point{Point(0, 0), Point(1, 1), Point(0.5, 0.2)})
	assert.InEpsilon(t, 1.239e6, area, 0.01)

	assert.Zero(t, BoundingAreaHa([]orb.Point{Point(1, 1)}))
	assert.InDelta(t, 0, BoundingAreaHa([]orb.Point{Point(1, 1), Point(1, 2)}), 1e-6, "collinear points span no area")
}
