package zipkit

import (
	"io"
)

// readLocalHeader reads and validates one local file header at the
// current position of r.
//
// On success it returns a LocalEntry with Valid set. An unknown
// compression method or the data-descriptor flag marks the entry invalid
// without returning an error, so that one unreadable entry doesn't abort
// traversal of the rest of the archive; a bad signature or short read
// returns a FormatError.
func readLocalHeader(r io.Reader) (*LocalEntry, error) {
	var fixed [26]byte
	var sig [4]byte
	if err := readFull("read local header", r, sig[:]); err != nil {
		return nil, err
	}
	b := readBuf(sig[:])
	if b.uint32() != fileHeaderSignature {
		return nil, newFormatErrorf("read local header", "bad local file header signature")
	}
	if err := readFull("read local header", r, fixed[:]); err != nil {
		return nil, err
	}
	rb := readBuf(fixed[:])

	e := &LocalEntry{}
	e.ExtractVersion = rb.uint16()
	e.Flags = rb.uint16()
	e.Method = rb.uint16()
	modTime := rb.uint16()
	modDate := rb.uint16()
	e.CRC32 = rb.uint32()
	e.CompressedSize = rb.uint32()
	e.UncompressedSize = rb.uint32()
	nameLen := rb.uint16()
	extraLen := rb.uint16()
	e.Modified = dosToTime(modDate, modTime)

	name := make([]byte, nameLen)
	if err := readFull("read local header", r, name); err != nil {
		return nil, err
	}
	e.Name = string(name)

	if extraLen > 0 {
		e.Extra = make([]byte, extraLen)
		if err := readFull("read local header", r, e.Extra); err != nil {
			return nil, err
		}
		if t, ok := readExtTimeExtra(e.Extra); ok {
			e.Modified = t
		}
	}

	if e.Name == "" {
		return nil, newFormatErrorf("read local header", "empty filename")
	}
	if e.Flags&dataDescriptorFlag != 0 {
		// Entries with trailing data descriptors are rejected rather than
		// guessing at sizes we have not yet read.
		e.Valid = false
		return e, nil
	}
	if e.Method != Store && e.Method != Deflate {
		e.Valid = false
		return e, nil
	}
	e.Valid = true
	return e, nil
}

// writeLocalHeader writes a local file header for e to w. When e's sizes
// and CRC32 are not yet known (the ZipOutputBuf placeholder case), the
// caller is expected to pass a zeroed Entry and back-patch later by
// seeking to e.EntryOffset and calling writeLocalHeader again.
func writeLocalHeader(w io.Writer, e *LocalEntry) error {
	if len(e.Name) > uint16max {
		return newInvalidStateError("write local header", "filename too long")
	}
	if len(e.Extra) > uint16max {
		return newInvalidStateError("write local header", "extra field too long")
	}

	modDate, modTime := timeToDos(e.Modified)

	var buf [fileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(e.ExtractVersion)
	b.uint16(e.Flags)
	b.uint16(e.Method)
	b.uint16(modTime)
	b.uint16(modDate)
	b.uint32(e.CRC32)
	b.uint32(e.CompressedSize)
	b.uint32(e.UncompressedSize)
	b.uint16(uint16(len(e.Name)))
	b.uint16(uint16(len(e.Extra)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return err
	}
	_, err := w.Write(e.Extra)
	return err
}
