package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/types"
)

func TestRowVersionRejectsNonEightBytes(t *testing.T) {
	_, err := types.NewRowVersion([]byte{1, 2, 3})
	assert.Error(t, err)

	rv, err := types.NewRowVersion([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rv.Uint64())
}

func TestRowVersionFromUint64RoundTrip(t *testing.T) {
	rv := types.RowVersionFromUint64(0x0102030405060708)
	back, err := types.NewRowVersion(rv.Bytes())
	require.NoError(t, err)
	assert.Equal(t, rv, back)
}
