package geo

import (
	"math"
	"strconv"

	"github.com/kailas-cloud/discovery/internal/domain"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is an immutable latitude/longitude pair in degrees.
type Point struct {
	lat float64
	lon float64
}

// NewPoint validates and creates a Point.
// Latitude must be in [-90,90], longitude in [-180,180].
func NewPoint(lat, lon float64) (Point, error) {
	verr := &domain.ValidationError{}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		verr.Add("latitude", "must be between -90 and 90, got %s", formatCoord(lat))
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		verr.Add("longitude", "must be between -180 and 180, got %s", formatCoord(lon))
	}
	if err := verr.OrNil(); err != nil {
		return Point{}, err
	}
	return Point{lat: lat, lon: lon}, nil
}

// MustPoint calls NewPoint and panics on error.
func MustPoint(lat, lon float64) Point {
	p, err := NewPoint(lat, lon)
	if err != nil {
		panic(err)
	}
	return p
}

// Lat returns the latitude in degrees.
func (p Point) Lat() float64 { return p.lat }

// Lon returns the longitude in degrees.
func (p Point) Lon() float64 { return p.lon }

// DistanceKm returns the great-circle distance to other in kilometers.
func (p Point) DistanceKm(other Point) float64 {
	return Haversine(p.lat, p.lon, other.lat, other.lon)
}

// Haversine returns the great-circle distance in kilometers between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Quantize rounds a coordinate half away from zero to the given number of decimals.
// Negative zero is normalized to zero.
func Quantize(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
