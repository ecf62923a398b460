package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ewkbSridFlag marks that a 4-byte SRID follows the geometry-type field
// in an Extended WKB payload (PostGIS's convention).
const ewkbSridFlag = 0x20000000

// Geometry is a spatial value object accepting WKT, EWKB, GeoJSON, or a
// provider-wrapped producer value. SRID is extracted from EWKB when
// present; WKT/GeoJSON carry it as an optional prefix/field.
type Geometry struct {
	WKT           string
	WKB           []byte
	GeoJSON       string
	SRID          int32
	ProviderValue any
}

// Geography is identical to Geometry except its SRID defaults to 4326
// (WGS 84) rather than 0 when none is specified.
type Geography struct {
	Geometry
}

// ParseGeometryEWKB extracts SRID from data per the `type | 0x20000000`
// convention and returns a Geometry preserving the original bytes
// exactly.
func ParseGeometryEWKB(data []byte) (Geometry, error) {
	if len(data) < 5 {
		return Geometry{}, fmt.Errorf("types: ewkb payload too short: %d bytes", len(data))
	}
	var order binary.ByteOrder
	switch data[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return Geometry{}, fmt.Errorf("types: invalid ewkb byte order marker %#x", data[0])
	}
	geomType := order.Uint32(data[1:5])
	srid := int32(0)
	if geomType&ewkbSridFlag != 0 {
		if len(data) < 9 {
			return Geometry{}, fmt.Errorf("types: ewkb srid flag set but payload too short")
		}
		srid = int32(order.Uint32(data[5:9]))
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	return Geometry{WKB: stored, SRID: srid}, nil
}

// ParseGeometryWKT accepts WKT with an optional "SRID=NNNN;" prefix.
func ParseGeometryWKT(s string) (Geometry, error) {
	srid := int32(0)
	body := s
	if strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		idx := strings.IndexByte(s, ';')
		if idx < 0 {
			return Geometry{}, fmt.Errorf("types: malformed SRID prefix in wkt %q", s)
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(s[:idx], "SRID="), 10, 32)
		if err != nil {
			return Geometry{}, fmt.Errorf("types: invalid SRID in wkt %q: %w", s, err)
		}
		srid = int32(n)
		body = s[idx+1:]
	}
	return Geometry{WKT: body, SRID: srid}, nil
}

// ParseGeometryGeoJSON accepts GeoJSON text with an optional top-level
// "srid" field.
func ParseGeometryGeoJSON(s string) (Geometry, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return Geometry{}, fmt.Errorf("types: invalid geojson: %w", err)
	}
	srid := int32(0)
	if raw, ok := doc["srid"]; ok {
		switch v := raw.(type) {
		case float64:
			srid = int32(v)
		case string:
			n, err := strconv.ParseInt(v, 10, 32)
			if err == nil {
				srid = int32(n)
			}
		}
	}
	return Geometry{GeoJSON: s, SRID: srid}, nil
}

// ParseGeographyWKT defaults SRID to 4326 when the text carries none.
func ParseGeographyWKT(s string) (Geography, error) {
	g, err := ParseGeometryWKT(s)
	if err != nil {
		return Geography{}, err
	}
	if !strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		g.SRID = 4326
	}
	return Geography{Geometry: g}, nil
}
