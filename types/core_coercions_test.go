package types_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/types"
)

func TestDecimalRoundTripsThroughString(t *testing.T) {
	r := types.NewRegistry()
	v, ok := r.TryRead("19.99", types.Decimal)
	require.True(t, ok)
	d := v.(decimal.Decimal)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))

	out, ok := r.TryWrite(d, types.Decimal)
	require.True(t, ok)
	assert.Equal(t, "19.99", out)
}

func TestDecimalRejectsMalformedString(t *testing.T) {
	r := types.NewRegistry()
	_, ok := r.TryRead("not-a-number", types.Decimal)
	assert.False(t, ok)
}

func TestBooleanFromString(t *testing.T) {
	r := types.NewRegistry()
	cases := map[string]bool{
		"true": true, "TRUE": true, "t": true, "Y": true, "1": true, "1.5": true,
		"false": false, "FALSE": false, "f": false, "N": false, "0": false, "0.0": false,
	}
	for s, want := range cases {
		v, ok := r.TryRead(s, types.Boolean)
		require.True(t, ok, s)
		assert.Equal(t, want, v, s)
	}
	_, ok := r.TryRead("banana", types.Boolean)
	assert.False(t, ok)
}

func TestBooleanFromNumeric(t *testing.T) {
	r := types.NewRegistry()
	v, ok := r.TryRead(0, types.Boolean)
	require.True(t, ok)
	assert.Equal(t, false, v)

	v, ok = r.TryRead(3.14, types.Boolean)
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestGuidFromVariousSources(t *testing.T) {
	r := types.NewRegistry()
	id := uuid.New()

	v, ok := r.TryRead(id.String(), types.Guid)
	require.True(t, ok)
	assert.Equal(t, id, v)

	v, ok = r.TryRead(id[:], types.Guid)
	require.True(t, ok)
	assert.Equal(t, id, v)

	_, ok = r.TryRead([]byte{1, 2, 3}, types.Guid)
	assert.False(t, ok, "wrong-sized byte array must fail")
}

func TestDateTimePolicies(t *testing.T) {
	loc := time.FixedZone("TEST", 2*60*60)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)

	prefer := types.NewDateTimeCoercion(types.PreferDateTimeOffset)
	v, ok := prefer.TryRead(ts, types.DateTimeOffset)
	require.True(t, ok)
	got := v.(time.Time)
	_, offset := got.Zone()
	assert.Equal(t, 2*60*60, offset)

	forceUTC := types.NewDateTimeCoercion(types.ForceUtcDateTime)
	v, ok = forceUTC.TryRead(ts, types.DateTime)
	require.True(t, ok)
	got = v.(time.Time)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, ts.UTC(), got)
}

func TestEnumCoercion(t *testing.T) {
	members := []types.EnumMember{
		{Name: "Pending", Value: 0},
		{Name: "Active", Value: 1},
		{Name: "Closed", Value: 2},
	}
	e := types.NewEnumCoercion(members)

	v, ok := e.TryRead("active", types.Enum)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	v, ok = e.TryRead("2", types.Enum)
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	v, ok = e.TryRead(int64(0), types.Enum)
	require.True(t, ok)
	assert.Equal(t, int64(0), v)

	_, ok = e.TryRead("nonexistent", types.Enum)
	assert.False(t, ok)

	_, ok = e.TryRead(int64(99), types.Enum)
	assert.False(t, ok)
}

func TestJsonCoercionEmptyAndInvalid(t *testing.T) {
	j := types.NewRegistry()
	v, ok := j.TryRead("   ", types.Json)
	require.True(t, ok)
	assert.Nil(t, v)

	v, ok = j.TryRead("not json", types.Json)
	require.True(t, ok, "invalid JSON from a string source logs and returns null, not an error")
	assert.Nil(t, v)

	v, ok = j.TryRead(`{"a":1}`, types.Json)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, v)
}

func TestJsonCoercionInvalidStreamFails(t *testing.T) {
	r := types.NewRegistry()
	_, ok := r.TryRead([]byte("not json"), types.Json)
	assert.False(t, ok, "invalid JSON from a byte-stream source must fail")
}
