package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimals FormatCoordinate emits.
// Four decimals is roughly 11 m at the equator.
const DefaultPrecision = 4

var (
	// ErrMalformedCoordinate reports text that is not two comma-separated decimal numbers.
	ErrMalformedCoordinate = errors.New("malformed coordinate")

	// ErrOutOfRegion reports a well-formed coordinate outside the configured bounding box.
	ErrOutOfRegion = errors.New("coordinate outside region")
)

// decimalRe accepts plain decimal notation with an optional sign and exponent.
// strconv.ParseFloat alone would also admit "NaN", "Inf", hex floats and underscores.
var decimalRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Coordinate is a WGS-84 point. The textual form is always "lon,lat".
type Coordinate struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// BoundingBox is a closed latitude/longitude rectangle.
type BoundingBox struct {
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
	LngMin float64 `json:"lng_min" yaml:"lng_min"`
	LngMax float64 `json:"lng_max" yaml:"lng_max"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{Lon: (b.LngMin + b.LngMax) / 2, Lat: (b.LatMin + b.LatMax) / 2}
}

// TaitaTavetaRegion is the operating region of the dispatch deployment.
var TaitaTavetaRegion = BoundingBox{LatMin: -3.9, LatMax: -3.0, LngMin: 37.6, LngMax: 38.8}

// TaitaTavetaCentroid is used as the viewport when nothing else can be placed.
var TaitaTavetaCentroid = Coordinate{Lon: 38.2167, Lat: -3.3167}

// Contains reports whether c lies inside b, edges included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.LatMin && c.Lat <= b.LatMax &&
		c.Lon >= b.LngMin && c.Lon <= b.LngMax
}

// ParseCoordinate parses "lon,lat". Spaces around either token are tolerated.
// When region is non-nil the point must also fall inside it.
// Errors wrap ErrMalformedCoordinate or ErrOutOfRegion.
func ParseCoordinate(raw string, region *BoundingBox) (Coordinate, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("parse coordinate %q: %w: want 2 tokens, got %d", raw, ErrMalformedCoordinate, len(parts))
	}

	lon, err := parseToken(parts[0])
	if err != nil {
		return Coordinate{}, fmt.Errorf("parse coordinate %q: longitude: %w", raw, err)
	}
	lat, err := parseToken(parts[1])
	if err != nil {
		return Coordinate{}, fmt.Errorf("parse coordinate %q: latitude: %w", raw, err)
	}

	c := Coordinate{Lon: lon, Lat: lat}
	if region != nil && !region.Contains(c) {
		return Coordinate{}, fmt.Errorf("parse coordinate %q: %w", raw, ErrOutOfRegion)
	}
	return c, nil
}

func parseToken(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if !decimalRe.MatchString(token) {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrMalformedCoordinate, token)
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrMalformedCoordinate, token)
	}
	return v, nil
}

// FormatCoordinate renders c as "lon,lat" with DefaultPrecision decimals.
func FormatCoordinate(c Coordinate) string {
	return FormatCoordinatePrecision(c, DefaultPrecision)
}

// FormatCoordinatePrecision renders c as "lon,lat" rounded to precision decimals.
// A negative precision falls back to DefaultPrecision.
func FormatCoordinatePrecision(c Coordinate, precision int) string {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return strconv.FormatFloat(c.Lon, 'f', precision, 64) + "," +
		strconv.FormatFloat(c.Lat, 'f', precision, 64)
}

// String implements fmt.Stringer using the wire format.
func (c Coordinate) String() string {
	return FormatCoordinate(c)
}

// ExclusionReason classifies why a coordinate could not be placed on the map.
type ExclusionReason string

const (
	ReasonMalformed   ExclusionReason = "malformed"
	ReasonOutOfRegion ExclusionReason = "out_of_region"
)

// ReasonFor maps a ParseCoordinate error to its reason code.
func ReasonFor(err error) ExclusionReason {
	if errors.Is(err, ErrOutOfRegion) {
		return ReasonOutOfRegion
	}
	return ReasonMalformed
}
