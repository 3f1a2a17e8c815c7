package zipkit

import (
	"hash/crc32"
	"io"
	"time"
)

// ZipOutputBuf writes local headers, streams compressed entry data, and
// back-patches sizes/CRCs once each entry closes.
//
// The lower sink must be an io.Seeker: rather than trailing each entry
// with a data descriptor, this writer seeks back to the placeholder local
// header once the final sizes and CRC are known and rewrites it in place.
// A non-seekable sink fails with InvalidStateError on the first
// PutNextEntry call.
//
// Only one entry may be open at a time; ZipOutputBuf itself implements
// io.Writer, forwarding to whichever entry is currently open, the same
// single-cursor shape ZipInputBuf uses on the read side.
type ZipOutputBuf struct {
	lower  io.Writer
	seeker io.Seeker // non-nil iff lower implements io.Seeker

	entries []*CentralEntry
	comment []byte
	level   int

	entryOpen bool
	archOpen  bool

	current     *CentralEntry
	entryOffset int64

	deflate *DeflateOutputBuf
	stored  *countWriter
}

// NewZipOutputBuf creates a ZipOutputBuf writing to lower at
// DefaultCompressionLevel. lower must implement io.Seeker or the first
// PutNextEntry call fails with InvalidStateError.
func NewZipOutputBuf(lower io.Writer) *ZipOutputBuf {
	b := &ZipOutputBuf{lower: lower, level: DefaultCompressionLevel, archOpen: true}
	if s, ok := lower.(io.Seeker); ok {
		b.seeker = s
	}
	return b
}

func (b *ZipOutputBuf) seek(offset int64, whence int) (int64, error) {
	if b.seeker == nil {
		return 0, newInvalidStateError("zip output", "lower sink is not seekable")
	}
	return b.seeker.Seek(offset, whence)
}

// SetLevel sets the DEFLATE compression level (1-9) used for entries
// opened after the call.
func (b *ZipOutputBuf) SetLevel(level int) {
	b.level = level
}

// SetComment sets the archive comment emitted by Finish.
func (b *ZipOutputBuf) SetComment(comment string) error {
	if len(comment) > uint16max {
		return newInvalidStateError("set comment", "archive comment too long")
	}
	b.comment = []byte(comment)
	return nil
}

// NewEntry is the caller-supplied description of an entry to add: name,
// method, modification time, extra field and external attributes. Sizes
// and CRC32 are computed by ZipOutputBuf and must not be set here.
type NewEntry struct {
	Name           string
	Method         uint16
	Modified       time.Time
	Extra          []byte
	ExternFileAttr uint32 // 0 means defaultExternalAttr
	Comment        string
}

// PutNextEntry begins a new entry. If an entry is currently open it is
// closed first. The current lower-sink position is recorded as the
// entry's offset, a placeholder local header (zero sizes and CRC) is
// written, and the compression engine for the entry is initialized.
func (b *ZipOutputBuf) PutNextEntry(ne NewEntry) error {
	if !b.archOpen {
		return newInvalidStateError("put next entry", "archive already finished")
	}
	if b.entryOpen {
		if err := b.CloseEntry(); err != nil {
			return err
		}
	}
	offset, err := b.seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	method := ne.Method
	if method != Store && method != Deflate {
		method = Store
	}

	extAttr := ne.ExternFileAttr
	if extAttr == 0 {
		extAttr = defaultExternalAttr
	}

	extra := writeExtTimeExtra(append([]byte(nil), ne.Extra...), ne.Modified)

	ce := &CentralEntry{
		LocalEntry: LocalEntry{
			Entry: Entry{
				Name:           ne.Name,
				Method:         method,
				Modified:       ne.Modified,
				Extra:          extra,
				ExtractVersion: zipVersion20,
				Valid:          true,
			},
			EntryOffset: uint32(offset),
		},
		WriterVersion:  writerVersion(),
		ExternFileAttr: extAttr,
		Comment:        ne.Comment,
	}
	utf8Valid1, utf8Require1 := detectUTF8(ce.Name)
	utf8Valid2, utf8Require2 := detectUTF8(ce.Comment)
	if (utf8Require1 || utf8Require2) && utf8Valid1 && utf8Valid2 {
		ce.Flags |= utf8Flag
	}

	if err := writeLocalHeader(b.lower, &ce.LocalEntry); err != nil {
		return err
	}

	b.current = ce
	b.entryOffset = offset
	b.entryOpen = true

	if method == Deflate {
		deflate, err := NewDeflateOutputBuf(b.lower, b.level)
		if err != nil {
			return err
		}
		b.deflate = deflate
		b.stored = nil
	} else {
		b.stored = &countWriter{w: b.lower}
		b.deflate = nil
	}
	return nil
}

// Write forwards to whichever entry is currently open: DEFLATE entries go
// through the compressor, STORED entries are copied through verbatim
// while this accumulates their running CRC-32 and byte count.
func (b *ZipOutputBuf) Write(p []byte) (int, error) {
	if !b.entryOpen {
		return 0, newInvalidStateError("zip write", "no entry open")
	}
	if b.deflate != nil {
		// DeflateOutputBuf tracks its own running CRC-32/byte count of the
		// uncompressed input; CloseEntry reads them back when finishing.
		return b.deflate.Write(p)
	}
	n, err := b.stored.Write(p)
	if n > 0 {
		b.current.CRC32 = crc32.Update(b.current.CRC32, crc32.IEEETable, p[:n])
		b.current.UncompressedSize += uint32(n)
	}
	return n, err
}

// CloseEntry finishes the compression engine, computes the entry's final
// sizes and CRC, seeks back to the local header and rewrites it with the
// now-known values, then seeks forward again.
func (b *ZipOutputBuf) CloseEntry() error {
	if !b.entryOpen {
		return nil
	}

	if b.deflate != nil {
		if err := b.deflate.Finish(); err != nil {
			return err
		}
		b.current.CompressedSize = uint32(b.deflate.CompressedCount())
		b.current.UncompressedSize = uint32(b.deflate.UncompressedCount())
		b.current.CRC32 = b.deflate.CRC32()
	} else {
		b.current.CompressedSize = uint32(b.stored.count)
		// UncompressedSize/CRC32 were already accumulated in Write for
		// the STORED case, where compressed bytes equal uncompressed
		// bytes.
	}

	endOffset, err := b.seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	if _, err := b.seek(b.entryOffset, io.SeekStart); err != nil {
		return err
	}
	if err := writeLocalHeader(b.lower, &b.current.LocalEntry); err != nil {
		return err
	}
	if _, err := b.seek(endOffset, io.SeekStart); err != nil {
		return err
	}

	b.entries = append(b.entries, b.current)
	b.entryOpen = false
	b.current = nil
	b.deflate = nil
	b.stored = nil
	return nil
}

// Finish closes any open entry, writes each central directory record, and
// writes the EOCD. Any further writes after Finish return
// InvalidStateError.
func (b *ZipOutputBuf) Finish() error {
	if !b.archOpen {
		return newInvalidStateError("finish", "already finished")
	}
	if b.entryOpen {
		if err := b.CloseEntry(); err != nil {
			return err
		}
	}

	cdirOffset, err := b.seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	cw := &countWriter{w: b.lower}
	for _, e := range b.entries {
		if err := writeCentralHeader(cw, e); err != nil {
			return err
		}
	}

	if err := writeEOCD(b.lower, uint16(len(b.entries)), uint32(cw.count), uint32(cdirOffset), b.comment); err != nil {
		return err
	}

	b.archOpen = false
	return nil
}
