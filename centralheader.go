package zipkit

import "io"

// readCentralHeader reads and validates one central directory record at
// the current position of r. Unlike readLocalHeader, any mismatch here is
// a hard FormatError: the central directory is the canonical index and a
// corrupt record cannot be safely skipped since we don't yet know its
// length.
func readCentralHeader(r io.Reader) (*CentralEntry, error) {
	var sig [4]byte
	if err := readFull("read central header", r, sig[:]); err != nil {
		return nil, err
	}
	if (readBuf(sig[:])).uint32() != directoryHeaderSignature {
		return nil, newFormatErrorf("read central header", "bad central directory signature")
	}

	var fixed [42]byte
	if err := readFull("read central header", r, fixed[:]); err != nil {
		return nil, err
	}
	rb := readBuf(fixed[:])

	e := &CentralEntry{}
	e.WriterVersion = rb.uint16()
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
	commentLen := rb.uint16()
	e.DiskNumStart = rb.uint16()
	e.InternFileAttr = rb.uint16()
	e.ExternFileAttr = rb.uint32()
	e.EntryOffset = rb.uint32()
	e.Modified = dosToTime(modDate, modTime)

	name := make([]byte, nameLen)
	if err := readFull("read central header", r, name); err != nil {
		return nil, err
	}
	e.Name = string(name)

	if extraLen > 0 {
		e.Extra = make([]byte, extraLen)
		if err := readFull("read central header", r, e.Extra); err != nil {
			return nil, err
		}
		if t, ok := readExtTimeExtra(e.Extra); ok {
			e.Modified = t
		}
	}

	if commentLen > 0 {
		comment := make([]byte, commentLen)
		if err := readFull("read central header", r, comment); err != nil {
			return nil, err
		}
		e.Comment = string(comment)
	}

	if e.Name == "" {
		return nil, newFormatErrorf("read central header", "empty filename")
	}

	e.Valid = true
	return e, nil
}

// writeCentralHeader writes e's central directory record to w, enforcing
// the 16-bit length caps on name, extra field and comment.
func writeCentralHeader(w io.Writer, e *CentralEntry) error {
	if len(e.Name) > uint16max {
		return newInvalidStateError("write central header", "filename too long")
	}
	if len(e.Extra) > uint16max {
		return newInvalidStateError("write central header", "extra field too long")
	}
	if len(e.Comment) > uint16max {
		return newInvalidStateError("write central header", "comment too long")
	}

	modDate, modTime := timeToDos(e.Modified)

	var buf [directoryHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryHeaderSignature)
	b.uint16(e.WriterVersion)
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
	b.uint16(uint16(len(e.Comment)))
	b.uint16(e.DiskNumStart)
	b.uint16(e.InternFileAttr)
	b.uint32(e.ExternFileAttr)
	b.uint32(e.EntryOffset)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, e.Name); err != nil {
		return err
	}
	if _, err := w.Write(e.Extra); err != nil {
		return err
	}
	_, err := io.WriteString(w, e.Comment)
	return err
}

// defaultExternalAttr is the attribute word applied to an entry when the
// caller hasn't called SetMode: a regular file, rw-rw-r--.
const defaultExternalAttr = 0x81B40000

// writerVersion combines the fixed version-needed byte with the UNIX
// creator code. This module always declares UNIX regardless of build
// host, since it never emits FAT/NTFS-specific attribute encodings.
func writerVersion() uint16 {
	return zipVersion20 | creatorUnix<<8
}
