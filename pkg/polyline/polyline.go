// Package polyline encodes and decodes routes in Google's encoded polyline format.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// Precision is the number of decimal places kept per coordinate.
type Precision int

const (
	// Precision5 is the Google Maps and OpenRouteService default.
	Precision5 Precision = 5
	// Precision6 is used by OSRM and Valhalla.
	Precision6 Precision = 6
)

// ErrMalformed is returned for input that ends inside a value or contains
// characters outside the polyline alphabet.
var ErrMalformed = errors.New("polyline: malformed input")

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

func (p Precision) factor() float64 {
	if p <= 0 {
		p = Precision5
	}
	return math.Pow10(int(p))
}

// Decode decodes a precision 5 polyline.
func Decode(encoded string) ([]Coordinate, error) {
	return DecodeWithPrecision(encoded, Precision5)
}

// DecodeWithPrecision decodes a polyline encoded with the given precision.
func DecodeWithPrecision(encoded string, precision Precision) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := precision.factor()
	var coords []Coordinate
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		lonDelta, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += latDelta
		lon += lonDelta
		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return coords, nil
}

func decodeValue(encoded string, index int) (int, int, error) {
	shift, result := 0, 0

	for {
		if index >= len(encoded) {
			return 0, index, ErrMalformed
		}
		b := int(encoded[index]) - 63
		if b < 0 || b > 0x3f || shift > 30 {
			return 0, index, ErrMalformed
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode encodes coordinates with precision 5.
func Encode(coords []Coordinate) string {
	return EncodeWithPrecision(coords, Precision5)
}

// EncodeWithPrecision encodes coordinates with the given precision.
func EncodeWithPrecision(coords []Coordinate, precision Precision) string {
	if len(coords) == 0 {
		return ""
	}

	factor := precision.factor()
	encoded := make([]byte, 0, len(coords)*4)
	prevLat, prevLon := 0, 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * factor))
		lon := int(math.Round(coord.Lon * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
