package types

import (
	"bytes"
	"io"
	"strings"
)

// BlobStream is a seekable binary LOB reader. It wraps a byte slice in
// memory, or rewinds a live stream to the start before first use.
type BlobStream struct {
	r io.ReadSeeker
}

// NewBlobStreamFromBytes wraps b in an in-memory reader.
func NewBlobStreamFromBytes(b []byte) BlobStream {
	return BlobStream{r: bytes.NewReader(b)}
}

// NewBlobStreamFromReader resets a seekable stream to position zero.
func NewBlobStreamFromReader(r io.ReadSeeker) (BlobStream, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return BlobStream{}, err
	}
	return BlobStream{r: r}, nil
}

func (b BlobStream) Reader() io.ReadSeeker { return b.r }

// ClobStream is a character LOB reader backed by a string reader or a
// caller-supplied stream; a supplied stream is not rewound.
type ClobStream struct {
	r io.Reader
}

// NewClobStreamFromString wraps s in a string reader.
func NewClobStreamFromString(s string) ClobStream {
	return ClobStream{r: strings.NewReader(s)}
}

// NewClobStreamFromReader wraps an existing stream without rewinding it;
// callers own positioning for non-seekable character streams.
func NewClobStreamFromReader(r io.Reader) ClobStream {
	return ClobStream{r: r}
}

func (c ClobStream) Reader() io.Reader { return c.r }
