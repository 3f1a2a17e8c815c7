package zipkit

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// inflateOutBufSize is an output buffer size of 4 KiB. InflateInputBuf
// does not use it: it keeps no staging buffer, and Read inflates directly
// into the caller's slice.
const inflateOutBufSize = 4096

// InflateInputBuf is a pull-based byte-stream source that decompresses a
// raw DEFLATE stream read from a lower source.
//
// The decoder is github.com/klauspost/compress/flate, a drop-in
// replacement for the standard library's compress/flate that implements
// the same flate.Resetter contract this type relies on to start a fresh
// stream per ZIP entry without allocating a new decoder (see Reset).
type InflateInputBuf struct {
	lower   io.Reader
	decoder io.ReadCloser
	crc     uint32
	done    bool
}

// NewInflateInputBuf creates an InflateInputBuf reading compressed bytes
// from lower, starting a DEFLATE stream immediately.
func NewInflateInputBuf(lower io.Reader) *InflateInputBuf {
	b := &InflateInputBuf{lower: lower}
	b.decoder = flate.NewReader(lower)
	return b
}

// Reset reinitializes the decoder to start a fresh DEFLATE stream at the
// current position of the lower source.
func (b *InflateInputBuf) Reset(lower io.Reader) {
	b.lower = lower
	b.crc = 0
	b.done = false
	if resetter, ok := b.decoder.(flate.Resetter); ok {
		if err := resetter.Reset(lower, nil); err == nil {
			return
		}
	}
	b.decoder = flate.NewReader(lower)
}

// Read fills p with inflated bytes, stopping at the natural end of the
// DEFLATE stream regardless of how many bytes remain in the lower source.
// When the lower source is an io.ByteReader it is left positioned at the
// first byte past the deflated payload; any other source is wrapped by the
// decoder in its own buffered reader, which may read beyond that point.
func (b *InflateInputBuf) Read(p []byte) (int, error) {
	if b.done {
		return 0, io.EOF
	}
	n, err := b.decoder.Read(p)
	if n > 0 {
		b.crc = crc32.Update(b.crc, crc32.IEEETable, p[:n])
	}
	if err == io.EOF {
		b.done = true
	} else if err != nil {
		return n, newFormatError("inflate", err)
	}
	return n, err
}

// CRC32 returns the running CRC-32 of all bytes emitted so far.
func (b *InflateInputBuf) CRC32() uint32 {
	return b.crc
}

// Close releases the decoder's internal buffers. It does not close the
// lower source, which InflateInputBuf never owns.
func (b *InflateInputBuf) Close() error {
	return b.decoder.Close()
}
