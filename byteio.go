package zipkit

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// readBuf is a little-endian byte-packing cursor used while decoding
// fixed-width header fields.
type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func (b *readBuf) sub(n int) []byte {
	v := (*b)[:n]
	*b = (*b)[n:]
	return v
}

// writeBuf is its write-side twin, used while encoding fixed-width header
// fields.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

// readFull reads exactly len(buf) bytes from r, wrapping a short read into a
// FormatError rather than leaking io.ErrUnexpectedEOF to the caller.
func readFull(op string, r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return newFormatError(op, err)
	}
	return nil
}

// countWriter wraps an io.Writer and tracks the number of bytes written
// through it.
type countWriter struct {
	w     io.Writer
	count int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += int64(n)
	return n, err
}

// crcWriter wraps an io.Writer and accumulates a running IEEE CRC-32 of
// every byte written through it.
type crcWriter struct {
	w    io.Writer
	hash uint32
}

func newCRCWriter(w io.Writer) *crcWriter {
	return &crcWriter{w: w}
}

func (w *crcWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if n > 0 {
		w.hash = crc32.Update(w.hash, crc32.IEEETable, p[:n])
	}
	return n, err
}

func (w *crcWriter) Sum32() uint32 { return w.hash }
