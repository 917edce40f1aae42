// Package geo finds the served city closest to a coordinate.
package geo

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

const earthRadiusKm = 6371.0

//go:embed cities.yaml
var citiesYAML []byte

// City is one served location.
type City struct {
	Name     string  `yaml:"name" json:"name"`
	Province string  `yaml:"province" json:"province"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lon      float64 `yaml:"lon" json:"lon"`
}

// Locator answers nearest-city queries over a fixed list.
type Locator struct {
	cities []City
}

// NewLocator loads the embedded city list.
func NewLocator() (*Locator, error) {
	return Parse(citiesYAML)
}

// Parse builds a Locator from a YAML document with a top-level cities list.
func Parse(doc []byte) (*Locator, error) {
	var f struct {
		Cities []City `yaml:"cities"`
	}
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}
	if len(f.Cities) == 0 {
		return nil, errors.New("parse cities: list is empty")
	}
	return &Locator{cities: f.Cities}, nil
}

// Nearest returns the closest city to (lat, lon) and its great-circle
// distance in kilometres.
func (l *Locator) Nearest(lat, lon float64) (City, float64) {
	best, bestDist := l.cities[0], math.Inf(1)
	for _, c := range l.cities {
		if d := Haversine(lat, lon, c.Lat, c.Lon); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// Haversine is the great-circle distance in km between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// HandleNearest serves GET /cities/nearest?lat=&lon=.
func (l *Locator) HandleNearest(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err1 != nil || err2 != nil || !validCoord(lat, 90) || !validCoord(lon, 180) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lon must be valid coordinates"})
	}
	city, dist := l.Nearest(lat, lon)
	return c.JSON(http.StatusOK, echo.Map{
		"city":        city,
		"distance_km": math.Round(dist*10) / 10,
	})
}

// validCoord rejects NaN and infinities, which ParseFloat accepts.
func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}
