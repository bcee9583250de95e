package route

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/windrider/windrider/internal/windimpact"
)

// MaxGPXCoordinates bounds the number of points accepted from a single file.
const MaxGPXCoordinates = 50000

// GPX parsing errors.
var (
	ErrInvalidGPX     = errors.New("invalid GPX document")
	ErrTooManyPoints  = errors.New("GPX document has too many points")
	ErrInvalidGPXNode = errors.New("GPX point has invalid lat/lon")
)

// GPXDocument is the result of parsing a GPX file.
type GPXDocument struct {
	Name        string
	Coordinates []windimpact.Coordinate
}

// ParseGPX streams a GPX document and collects every track, route and
// waypoint in document order. The name comes from the first <trk>/<rte>
// name, then <metadata><name>.
func ParseGPX(r io.Reader) (*GPXDocument, error) {
	dec := xml.NewDecoder(r)
	doc := &GPXDocument{}

	var (
		stack        []string
		metadataName string
		sawRoot      bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGPX, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if len(stack) == 0 {
				if local != "gpx" {
					return nil, fmt.Errorf("%w: root element is %q", ErrInvalidGPX, local)
				}
				sawRoot = true
			}
			stack = append(stack, local)

			switch local {
			case "trkpt", "rtept", "wpt":
				c, err := pointFromAttrs(t.Attr)
				if err != nil {
					return nil, err
				}
				if len(doc.Coordinates) >= MaxGPXCoordinates {
					return nil, ErrTooManyPoints
				}
				doc.Coordinates = append(doc.Coordinates, c)
			case "name":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidGPX, err)
				}
				stack = stack[:len(stack)-1]
				text = strings.TrimSpace(text)
				if text == "" || len(stack) == 0 {
					continue
				}
				switch stack[len(stack)-1] {
				case "trk", "rte":
					if doc.Name == "" {
						doc.Name = text
					}
				case "metadata":
					if metadataName == "" {
						metadataName = text
					}
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidGPX)
	}
	if doc.Name == "" {
		doc.Name = metadataName
	}
	return doc, nil
}

func pointFromAttrs(attrs []xml.Attr) (windimpact.Coordinate, error) {
	var (
		c              windimpact.Coordinate
		hasLat, hasLon bool
	)
	for _, a := range attrs {
		switch a.Name.Local {
		case "lat":
			v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
			if err != nil {
				return c, fmt.Errorf("%w: lat %q", ErrInvalidGPXNode, a.Value)
			}
			c.Latitude, hasLat = v, true
		case "lon":
			v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
			if err != nil {
				return c, fmt.Errorf("%w: lon %q", ErrInvalidGPXNode, a.Value)
			}
			c.Longitude, hasLon = v, true
		}
	}
	if !hasLat || !hasLon {
		return c, fmt.Errorf("%w: missing attribute", ErrInvalidGPXNode)
	}
	return c, nil
}
