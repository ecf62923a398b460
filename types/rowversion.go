package types

import (
	"encoding/binary"
	"fmt"
)

// RowVersion is an opaque 8-byte optimistic-concurrency token.
type RowVersion [8]byte

// NewRowVersion validates that b is exactly 8 bytes.
func NewRowVersion(b []byte) (RowVersion, error) {
	if len(b) != 8 {
		return RowVersion{}, fmt.Errorf("types: row version must be 8 bytes, got %d", len(b))
	}
	var rv RowVersion
	copy(rv[:], b)
	return rv, nil
}

// RowVersionFromUint64 encodes v big-endian, matching the wire form used
// by big-endian-encoded 8-byte integer sources.
func RowVersionFromUint64(v uint64) RowVersion {
	var rv RowVersion
	binary.BigEndian.PutUint64(rv[:], v)
	return rv
}

func (rv RowVersion) Uint64() uint64 {
	return binary.BigEndian.Uint64(rv[:])
}

func (rv RowVersion) Bytes() []byte {
	return append([]byte(nil), rv[:]...)
}
