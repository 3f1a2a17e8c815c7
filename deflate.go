package zipkit

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// DefaultCompressionLevel is a balanced level rather than the compressor's
// maximum, matching archive/zip's conventional default.
const DefaultCompressionLevel = 6

// DeflateOutputBuf is a push-based byte-stream sink that compresses bytes
// written to it and forwards the compressed bytes to a lower sink, using
// github.com/klauspost/compress/flate as the compression engine (the same
// library InflateInputBuf uses on the decode side).
type DeflateOutputBuf struct {
	lower             *countWriter
	encoder           *flate.Writer
	level             int
	uncompressedCount int64
	inputCRC          uint32
	finished          bool
}

// NewDeflateOutputBuf creates a DeflateOutputBuf writing compressed bytes
// to lower at the given level (1-9; pass 0 for DefaultCompressionLevel).
func NewDeflateOutputBuf(lower io.Writer, level int) (*DeflateOutputBuf, error) {
	if level == 0 {
		level = DefaultCompressionLevel
	}
	cw := &countWriter{w: lower}
	enc, err := flate.NewWriter(cw, level)
	if err != nil {
		return nil, newInvalidStateError("new deflate output", err.Error())
	}
	return &DeflateOutputBuf{lower: cw, encoder: enc, level: level}, nil
}

// Write pushes p through the compressor, writing any produced deflated
// bytes to the lower sink, and accumulates the running CRC-32/byte count
// of the uncompressed bytes offered.
func (b *DeflateOutputBuf) Write(p []byte) (int, error) {
	if b.finished {
		return 0, newInvalidStateError("deflate write", "write after finish")
	}
	n, err := b.encoder.Write(p)
	if n > 0 {
		b.uncompressedCount += int64(n)
		b.inputCRC = crc32.Update(b.inputCRC, crc32.IEEETable, p[:n])
	}
	return n, err
}

// Sync flushes the compressor such that every byte supplied so far is
// represented in the lower sink, without closing the DEFLATE stream
// (partial-flush semantics, via flate.Writer.Flush).
func (b *DeflateOutputBuf) Sync() error {
	if b.finished {
		return newInvalidStateError("deflate sync", "sync after finish")
	}
	return b.encoder.Flush()
}

// Finish closes the DEFLATE stream and marks the buffer finished. Any
// subsequent Write returns an error.
func (b *DeflateOutputBuf) Finish() error {
	if b.finished {
		return nil
	}
	b.finished = true
	return b.encoder.Close()
}

// UncompressedCount returns the total number of bytes offered via Write.
func (b *DeflateOutputBuf) UncompressedCount() int64 {
	return b.uncompressedCount
}

// CompressedCount returns the total number of compressed bytes emitted to
// the lower sink so far.
func (b *DeflateOutputBuf) CompressedCount() int64 {
	return b.lower.count
}

// CRC32 returns the running CRC-32 of all bytes offered to Write.
func (b *DeflateOutputBuf) CRC32() uint32 {
	return b.inputCRC
}
