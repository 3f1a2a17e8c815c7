package zipkit

import (
	"io"
)

// zipReadState is the codec enum ZipInputBuf carries instead of a
// subclass hierarchy.
type zipReadState int

const (
	stateIdle zipReadState = iota
	stateOpenStored
	stateOpenDeflated
)

// ZipInputBuf positions itself over a seekable lower source, parses
// successive local headers, and exposes a per-entry byte stream.
type ZipInputBuf struct {
	lower io.ReadSeeker

	state   zipReadState
	remain  uint32 // STORED: bytes left to read
	inflate *InflateInputBuf

	current   *LocalEntry
	dataStart int64
}

// NewZipInputBuf wraps lower. start, if non-zero, is the absolute position
// getNextEntry begins reading from; pass 0 to start at the beginning of
// the lower source.
func NewZipInputBuf(lower io.ReadSeeker, start int64) (*ZipInputBuf, error) {
	b := &ZipInputBuf{lower: lower}
	if start != 0 {
		if _, err := lower.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// GetNextEntry closes any currently open entry, reads the next local
// header, and transitions into the matching Open state. The returned
// entry is a clone so that the caller cannot mutate the cursor by
// mutating the returned value.
func (b *ZipInputBuf) GetNextEntry() (*LocalEntry, error) {
	if b.state != stateIdle {
		if err := b.CloseEntry(); err != nil {
			return nil, err
		}
	}

	entry, err := readLocalHeader(b.lower)
	if err != nil {
		return nil, err
	}

	pos, err := b.lower.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	b.dataStart = pos
	b.current = entry

	if !entry.Valid {
		// Skip the payload so that the next GetNextEntry starts at the
		// following local header.
		if _, err := b.lower.Seek(pos+int64(entry.CompressedSize), io.SeekStart); err != nil {
			return nil, err
		}
		b.state = stateIdle
		return cloneLocalEntry(entry), nil
	}

	switch entry.Method {
	case Deflate:
		if b.inflate == nil {
			b.inflate = NewInflateInputBuf(b.lower)
		} else {
			b.inflate.Reset(b.lower)
		}
		b.state = stateOpenDeflated
	case Store:
		b.remain = entry.UncompressedSize
		b.state = stateOpenStored
	default:
		b.state = stateIdle
	}

	return cloneLocalEntry(entry), nil
}

// CloseEntry seeks the lower source past this entry's compressed payload
// regardless of how much the consumer actually read, so that the next
// GetNextEntry can find the next local header.
func (b *ZipInputBuf) CloseEntry() error {
	if b.state == stateIdle {
		return nil
	}
	target := b.dataStart + int64(b.current.CompressedSize)
	_, err := b.lower.Seek(target, io.SeekStart)
	b.state = stateIdle
	b.current = nil
	return err
}

// Read serves STORED entries at most remain bytes verbatim; DEFLATED
// entries delegate to the InflateInputBuf.
func (b *ZipInputBuf) Read(p []byte) (int, error) {
	switch b.state {
	case stateOpenStored:
		if b.remain == 0 {
			return 0, io.EOF
		}
		if uint32(len(p)) > b.remain {
			p = p[:b.remain]
		}
		n, err := b.lower.Read(p)
		b.remain -= uint32(n)
		return n, err
	case stateOpenDeflated:
		return b.inflate.Read(p)
	default:
		return 0, io.EOF
	}
}

// cloneLocalEntry returns a value copy of e so the caller can't mutate the
// cursor.
func cloneLocalEntry(e *LocalEntry) *LocalEntry {
	cp := *e
	cp.Extra = append([]byte(nil), e.Extra...)
	return &cp
}
