package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Point builds an orb point from latitude and longitude (orb stores X=lon, Y=lat).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Box builds a bounding box from latitude and longitude limits.
func Box(minLat, maxLat, minLon, maxLon float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// Contains reports whether the coordinate lies inside the box, edges included.
func Contains(b orb.Bound, lat, lon float64) bool {
	return b.Contains(Point(lat, lon))
}

// CalculateCentroid returns the mean position of a set of points.
func CalculateCentroid(points []orb.Point) orb.Point {
	centroid, _ := planar.CentroidArea(orb.MultiPoint(points))
	return centroid
}

// Spread returns the latitude and longitude extent of a set of points in degrees.
func Spread(points []orb.Point) (latSpread, lonSpread float64) {
	if len(points) == 0 {
		return 0, 0
	}
	b := orb.MultiPoint(points).Bound()
	return b.Max.Y() - b.Min.Y(), b.Max.X() - b.Min.X()
}

// MaxDistanceKm returns the largest great-circle distance between any two points.
func MaxDistanceKm(points []orb.Point) float64 {
	var maxMeters float64
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if d := geo.DistanceHaversine(points[i], points[j]); d > maxMeters {
				maxMeters = d
			}
		}
	}
	return maxMeters / 1000
}

// ConvertToHectares converts square meters to hectares
func ConvertToHectares(sqMeters float64) float64 {
	return sqMeters / 10000
}

// BoundingAreaHa returns the geodesic area of the points' bounding box in hectares.
func BoundingAreaHa(points []orb.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	return ConvertToHectares(geo.Area(orb.MultiPoint(points).Bound()))
}
