package types

import "strings"

// BinaryProvider is implemented by driver-provided wrapper types that
// expose their EWKB payload via an AsBinary accessor, the Go-idiomatic
// stand-in for spec.md §4.5's "wrapper objects exposing an AsBinary
// accessor for EWKB".
type BinaryProvider interface {
	AsBinary() []byte
}

// geometryCoercion reads Geometry/Geography values from WKT, EWKB,
// GeoJSON, raw bytes, or a BinaryProvider, and writes back whichever
// representation the value object carries.
type geometryCoercion struct{}

func (geometryCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Geometry && target != Geography {
		return nil, false
	}
	switch v := raw.(type) {
	case Geography:
		return v, true
	case Geometry:
		return applyGeographyDefault(v, target), true
	case []byte:
		g, err := ParseGeometryEWKB(v)
		if err != nil {
			return nil, false
		}
		return applyGeographyDefault(g, target), true
	case BinaryProvider:
		g, err := ParseGeometryEWKB(v.AsBinary())
		if err != nil {
			return nil, false
		}
		return applyGeographyDefault(g, target), true
	case string:
		g, ok := parseGeometryText(v)
		if !ok {
			return nil, false
		}
		return applyGeographyDefault(g, target), true
	}
	return nil, false
}

// parseGeometryText dispatches a string payload to the GeoJSON or WKT
// parser by sniffing for a leading '{'.
func parseGeometryText(s string) (Geometry, bool) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		g, err := ParseGeometryGeoJSON(trimmed)
		if err != nil {
			return Geometry{}, false
		}
		return g, true
	}
	g, err := ParseGeometryWKT(trimmed)
	if err != nil {
		return Geometry{}, false
	}
	return g, true
}

// applyGeographyDefault implements Geography's "defaults SRID to 4326"
// rule on top of a Geometry that carried no explicit SRID.
func applyGeographyDefault(g Geometry, target LogicalType) any {
	if target != Geography {
		return g
	}
	if g.SRID == 0 {
		g.SRID = 4326
	}
	return Geography{Geometry: g}
}

func (geometryCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Geometry && target != Geography {
		return nil, false
	}
	g, ok := extractGeometry(value)
	if !ok {
		return nil, false
	}
	switch {
	case len(g.WKB) > 0:
		return g.WKB, true
	case g.WKT != "":
		return g.WKT, true
	case g.GeoJSON != "":
		return g.GeoJSON, true
	case g.ProviderValue != nil:
		return g.ProviderValue, true
	}
	return nil, false
}

func extractGeometry(value any) (Geometry, bool) {
	switch v := value.(type) {
	case Geography:
		return v.Geometry, true
	case Geometry:
		return v, true
	}
	return Geometry{}, false
}
