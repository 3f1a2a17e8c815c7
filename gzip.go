package zipkit

import (
	"bufio"
	"io"
	"time"
)

// GZIP member framing constants (RFC 1952 §2.3).
const (
	gzipMagic1    = 0x1f
	gzipMagic2    = 0x8b
	gzipDeflateCM = 8

	gzipFlagText    = 1 << 0
	gzipFlagHCRC    = 1 << 1
	gzipFlagExtra   = 1 << 2
	gzipFlagName    = 1 << 3
	gzipFlagComment = 1 << 4

	gzipHeaderLen  = 10
	gzipTrailerLen = 8
)

// GzipInputBuf decodes a single-member GZIP stream: the same push/pull
// buffer shape as ZipInputBuf, but one member instead of a central
// directory of many.
//
// Both the DEFLATE payload and the trailer that follows it are read from
// the same bufio.Reader. flate.NewReader wraps any source that isn't
// itself an io.ByteReader in its own buffered reader and reads ahead of
// the logical end of the stream, so reading the trailer back from the
// original unbuffered source would read stale or wrong bytes. Wrapping
// lower once here and handing that same buffer to both the header parse
// and InflateInputBuf keeps every read on one cursor.
type GzipInputBuf struct {
	lower   *bufio.Reader
	inflate *InflateInputBuf

	Name     string
	Comment  string
	Modified time.Time

	trailerCRC  uint32
	trailerSize uint32
	done        bool
}

// NewGzipInputBuf parses the member header from lower and prepares to
// inflate the payload that follows.
func NewGzipInputBuf(lower io.Reader) (*GzipInputBuf, error) {
	br := bufio.NewReader(lower)
	var hdr [gzipHeaderLen]byte
	if err := readFull("gzip header", br, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != gzipMagic1 || hdr[1] != gzipMagic2 {
		return nil, newFormatError("gzip header", errBadGzipMagic)
	}
	if hdr[2] != gzipDeflateCM {
		return nil, newFormatError("gzip header", errBadGzipMethod)
	}
	flags := hdr[3]
	rb := readBuf(hdr[4:8])
	mtime := rb.uint32()

	b := &GzipInputBuf{lower: br}
	if mtime != 0 {
		b.Modified = time.Unix(int64(mtime), 0)
	}

	if flags&gzipFlagExtra != 0 {
		var lenBuf [2]byte
		if err := readFull("gzip extra length", br, lenBuf[:]); err != nil {
			return nil, err
		}
		n := readBuf(lenBuf[:]).uint16()
		extra := make([]byte, n)
		if err := readFull("gzip extra", br, extra); err != nil {
			return nil, err
		}
	}
	if flags&gzipFlagName != 0 {
		name, err := readGzipCString(br)
		if err != nil {
			return nil, err
		}
		b.Name = name
	}
	if flags&gzipFlagComment != 0 {
		comment, err := readGzipCString(br)
		if err != nil {
			return nil, err
		}
		b.Comment = comment
	}
	if flags&gzipFlagHCRC != 0 {
		var hcrc [2]byte
		if err := readFull("gzip header crc", br, hcrc[:]); err != nil {
			return nil, err
		}
	}

	b.inflate = NewInflateInputBuf(br)
	return b, nil
}

// readGzipCString reads a NUL-terminated string one byte at a time, the way
// a streaming GZIP reader must since the field has no length prefix.
func readGzipCString(r io.Reader) (string, error) {
	var buf []byte
	var one [1]byte
	for {
		if err := readFull("gzip string field", r, one[:]); err != nil {
			return "", err
		}
		if one[0] == 0 {
			break
		}
		buf = append(buf, one[0])
	}
	return string(buf), nil
}

// Read inflates payload bytes. On reaching the end of the DEFLATE stream it
// reads the 8-byte trailer (CRC-32 and size mod 2^32) and checks its CRC-32
// against the bytes actually produced. The size field is recorded but not
// compared.
func (b *GzipInputBuf) Read(p []byte) (int, error) {
	if b.done {
		return 0, io.EOF
	}
	n, err := b.inflate.Read(p)
	if err == io.EOF {
		if terr := b.readTrailer(); terr != nil {
			return n, terr
		}
		b.done = true
		return n, io.EOF
	}
	return n, err
}

func (b *GzipInputBuf) readTrailer() error {
	var trailer [gzipTrailerLen]byte
	if err := readFull("gzip trailer", b.lower, trailer[:]); err != nil {
		return err
	}
	rb := readBuf(trailer[:])
	b.trailerCRC = rb.uint32()
	b.trailerSize = rb.uint32()
	if b.trailerCRC != b.inflate.CRC32() {
		return newFormatError("gzip trailer", errGzipCRCMismatch)
	}
	return nil
}

// Close releases the inflate decoder without consuming the lower source
// further.
func (b *GzipInputBuf) Close() error {
	return b.inflate.Close()
}

var (
	errBadGzipMagic    = simpleError("invalid gzip magic bytes")
	errBadGzipMethod   = simpleError("unsupported gzip compression method")
	errGzipCRCMismatch = simpleError("gzip trailer CRC-32 does not match payload")
)

// GzipOutputBuf writes a single-member GZIP stream: header, DEFLATE
// payload via DeflateOutputBuf, then trailer.
type GzipOutputBuf struct {
	lower   io.Writer
	deflate *DeflateOutputBuf
	closed  bool
}

// GzipHeader describes the optional fields of a GZIP member header.
type GzipHeader struct {
	Name     string
	Comment  string
	Modified time.Time
	Level    int
}

// NewGzipOutputBuf writes the member header to lower and prepares a
// compressor for the payload.
func NewGzipOutputBuf(lower io.Writer, hdr GzipHeader) (*GzipOutputBuf, error) {
	var flags byte
	if hdr.Name != "" {
		flags |= gzipFlagName
	}
	if hdr.Comment != "" {
		flags |= gzipFlagComment
	}

	var mtime uint32
	if !hdr.Modified.IsZero() {
		mtime = uint32(hdr.Modified.Unix())
	}

	var fixed [gzipHeaderLen]byte
	wb := writeBuf(fixed[:])
	wb.uint8(gzipMagic1)
	wb.uint8(gzipMagic2)
	wb.uint8(gzipDeflateCM)
	wb.uint8(flags)
	wb.uint32(mtime)
	wb.uint8(0) // extra flags
	wb.uint8(creatorUnix)
	if _, err := lower.Write(fixed[:]); err != nil {
		return nil, err
	}

	if hdr.Name != "" {
		if err := writeGzipCString(lower, hdr.Name); err != nil {
			return nil, err
		}
	}
	if hdr.Comment != "" {
		if err := writeGzipCString(lower, hdr.Comment); err != nil {
			return nil, err
		}
	}

	level := hdr.Level
	if level == 0 {
		level = DefaultCompressionLevel
	}
	deflate, err := NewDeflateOutputBuf(lower, level)
	if err != nil {
		return nil, err
	}
	return &GzipOutputBuf{lower: lower, deflate: deflate}, nil
}

func writeGzipCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// Write compresses and forwards p to the lower sink.
func (b *GzipOutputBuf) Write(p []byte) (int, error) {
	if b.closed {
		return 0, newInvalidStateError("gzip write", "write after close")
	}
	return b.deflate.Write(p)
}

// Close finishes the DEFLATE stream and writes the trailer: CRC-32 of the
// uncompressed payload, then its size modulo 2^32.
func (b *GzipOutputBuf) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.deflate.Finish(); err != nil {
		return err
	}
	var trailer [gzipTrailerLen]byte
	wb := writeBuf(trailer[:])
	wb.uint32(b.deflate.CRC32())
	wb.uint32(uint32(b.deflate.UncompressedCount()))
	_, err := b.lower.Write(trailer[:])
	return err
}
