package types_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/types"
)

func buildPointEWKB(srid int32) []byte {
	buf := make([]byte, 21)
	buf[0] = 1 // little-endian
	geomType := uint32(1) | 0x20000000
	binary.LittleEndian.PutUint32(buf[1:5], geomType)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(srid))
	binary.LittleEndian.PutUint64(buf[9:17], 0)
	binary.LittleEndian.PutUint64(buf[13:21], 0)
	return buf
}

func TestGeometryEWKBPreservesSRIDAndBytes(t *testing.T) {
	data := buildPointEWKB(4326)
	g, err := types.ParseGeometryEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, int32(4326), g.SRID)
	assert.Equal(t, data, g.WKB)
}

func TestGeometryWKTWithSRIDPrefix(t *testing.T) {
	g, err := types.ParseGeometryWKT("SRID=3857;POINT(1 2)")
	require.NoError(t, err)
	assert.Equal(t, int32(3857), g.SRID)
	assert.Equal(t, "POINT(1 2)", g.WKT)
}

func TestGeometryWKTWithoutSRID(t *testing.T) {
	g, err := types.ParseGeometryWKT("POINT(1 2)")
	require.NoError(t, err)
	assert.Equal(t, int32(0), g.SRID)
}

func TestGeographyDefaultsSRID4326(t *testing.T) {
	g, err := types.ParseGeographyWKT("POINT(1 2)")
	require.NoError(t, err)
	assert.Equal(t, int32(4326), g.SRID)

	g, err = types.ParseGeographyWKT("SRID=3857;POINT(1 2)")
	require.NoError(t, err)
	assert.Equal(t, int32(3857), g.SRID)
}

func TestGeometryGeoJSONSrid(t *testing.T) {
	g, err := types.ParseGeometryGeoJSON(`{"type":"Point","coordinates":[1,2],"srid":4269}`)
	require.NoError(t, err)
	assert.Equal(t, int32(4269), g.SRID)
}
