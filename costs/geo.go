/*
geo.go - Coordinates, great-circle distance, mileage reimbursement

PURPOSE:
  Mileage cost for a session is round-trip great-circle distance between
  the photographer's home and the school, times the photographer's
  per-mile rate. Coordinates are stored as "lat,lng" strings on both
  entities; parsing failures degrade silently to zero distance, never
  to an error.

ROUNDING:
  Round-trip miles round to 1 decimal place; mileage dollars round to 2.
  Those are the only rounding points on the mileage path.
*/
package costs

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Earth radius per unit. Standard Haversine constants.
const (
	earthRadiusMiles = 3959.0
	earthRadiusKM    = 6371.0
)

type DistanceUnit string

const (
	UnitMiles      DistanceUnit = "miles"
	UnitKilometers DistanceUnit = "km"
)

// Coordinate is a parsed lat/lng pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// ParseCoordinate parses a "<lat>,<lng>" string. Whitespace around each
// component is trimmed. ok=false when the input does not split into
// exactly two comma-separated floats.
func ParseCoordinate(s string) (Coordinate, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lng: lng}, true
}

// Distance computes the great-circle (Haversine) distance between two
// coordinates in the requested unit. Pure formula; antipodal and polar
// inputs get standard formula behavior, no special-casing.
func Distance(a, b Coordinate, unit DistanceUnit) float64 {
	radius := earthRadiusMiles
	if unit == UnitKilometers {
		radius = earthRadiusKM
	}

	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * radius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// SessionDistance is the round-trip mileage for one session: twice the
// one-way Haversine distance between the photographer's home and the
// school, in miles, rounded to 1 decimal.
//
// Missing entities and unparseable coordinates on either side yield 0.
func SessionDistance(p *Photographer, school *School) float64 {
	if p == nil || school == nil {
		return 0
	}
	home, ok := ParseCoordinate(p.HomeAddress)
	if !ok {
		return 0
	}
	dest, ok := ParseCoordinate(school.LocationString())
	if !ok {
		return 0
	}
	oneWay := Distance(home, dest, UnitMiles)
	return roundMiles(2 * oneWay)
}

// MileageCost is distance times rate, rounded to 2 decimals. Zero when
// either input is zero (or the rate is negative garbage).
func MileageCost(distance float64, rate decimal.Decimal) decimal.Decimal {
	if distance == 0 || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(distance).Mul(rate).Round(2)
}

// roundMiles rounds to 1 decimal place.
func roundMiles(miles float64) float64 {
	return math.Round(miles*10) / 10
}
