package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/dialect"
	"github.com/shiftdb/core/types"
)

// TestRegistryReadsNetworkValuesByDefault covers the non-blocking review
// finding that the advanced registry's network converters must be wired
// into NewRegistry rather than left opt-in only, so the enhanced
// parameter path is not inert out of the box.
func TestRegistryReadsNetworkValuesByDefault(t *testing.T) {
	r := types.NewRegistry()

	inet, ok := r.TryRead("192.168.1.1/24", types.Inet)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.1/24", inet.(types.Inet).String())

	cidr, ok := r.TryRead("10.0.0.0/8", types.Cidr)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0/8", cidr.(types.Cidr).String())

	_, ok = r.TryRead("192.168.1.1", types.Cidr)
	assert.False(t, ok, "cidr requires an explicit prefix")

	mac, ok := r.TryRead("00:1a:2b:3c:4d:5e", types.MacAddress)
	require.True(t, ok)
	assert.Equal(t, "00:1a:2b:3c:4d:5e", mac.(types.MacAddress).String())
}

func TestRegistryWritesNetworkValuesBackToText(t *testing.T) {
	r := types.NewRegistry()
	mac, err := types.ParseMacAddress("00-1a-2b-3c-4d-5e")
	require.NoError(t, err)

	param := &types.ParameterBinding{}
	r.RegisterMapping(types.ProviderTypeMapping{Logical: types.MacAddress, Provider: dialect.PostgreSql, DbType: "macaddr"})
	ok := r.TryConfigureParameter(param, types.MacAddress, mac, dialect.PostgreSql)
	require.True(t, ok)
	assert.Equal(t, "00:1a:2b:3c:4d:5e", param.Value)
}
