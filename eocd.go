package zipkit

import (
	"bytes"
	"io"
)

// EndOfCentralDirectory is the last structural record in a ZIP file.
type EndOfCentralDirectory struct {
	TotalCount     uint16
	CDirSize       uint32
	CDirOffset     uint32
	ArchiveComment []byte
	eocdFileOffset int64 // absolute offset of this record's signature in the file
}

// maxEOCDSearch is the maximum span of the file the locator will scan:
// the 22-byte fixed record plus the largest possible comment.
const maxEOCDSearch = directoryEndLen + uint16max

// locateEOCD implements the backward-scan locator algorithm: the record
// lies within the last 65 557 bytes of the file; for each candidate
// signature position p (scanned from the end), the record is valid iff
// p+22+commentLen == fileSize. The first valid candidate from the end
// wins, since a ZIP comment is free-form bytes that may itself contain
// the 4-byte signature and a naive first-match would stop too early.
func locateEOCD(r io.ReaderAt, fileSize int64) (*EndOfCentralDirectory, error) {
	searchSize := int64(maxEOCDSearch)
	if searchSize > fileSize {
		searchSize = fileSize
	}
	if searchSize < directoryEndLen {
		return nil, newFormatError("locate EOCD", errNoEOCD)
	}

	tailStart := fileSize - searchSize
	tail := make([]byte, searchSize)
	if _, err := r.ReadAt(tail, tailStart); err != nil && err != io.EOF {
		return nil, newFormatError("locate EOCD", err)
	}

	var sig [4]byte
	sig[0], sig[1], sig[2], sig[3] = 0x50, 0x4b, 0x05, 0x06

	searchEnd := len(tail) - directoryEndLen
	for searchEnd >= 0 {
		idx := bytes.LastIndex(tail[:searchEnd+4], sig[:])
		if idx < 0 {
			break
		}
		candidate := tail[idx:]
		commentLen := int(readBuf(candidate[20:22]).uint16())
		absolutePos := tailStart + int64(idx)
		if absolutePos+directoryEndLen+int64(commentLen) == fileSize {
			rb := readBuf(candidate[4:20])
			eocd := &EndOfCentralDirectory{
				eocdFileOffset: absolutePos,
			}
			_ = rb.uint16() // this-disk
			_ = rb.uint16() // disk with CD
			_ = rb.uint16() // entries on this disk
			eocd.TotalCount = rb.uint16()
			eocd.CDirSize = rb.uint32()
			eocd.CDirOffset = rb.uint32()
			if commentLen > 0 {
				eocd.ArchiveComment = append([]byte(nil), candidate[directoryEndLen:directoryEndLen+commentLen]...)
			}
			return eocd, nil
		}
		searchEnd = idx - 1
	}

	return nil, newFormatError("locate EOCD", errNoEOCD)
}

var errNoEOCD = errNoEOCDError{}

type errNoEOCDError struct{}

func (errNoEOCDError) Error() string { return "end of central directory record not found" }

// writeEOCD writes the end-of-central-directory record. It must be called
// after all central directory records have been written.
func writeEOCD(w io.Writer, totalCount uint16, cdirSize, cdirOffset uint32, comment []byte) error {
	if len(comment) > uint16max {
		return newInvalidStateError("write EOCD", "archive comment too long")
	}
	var buf [directoryEndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryEndSignature)
	b.uint16(0) // this disk
	b.uint16(0) // disk with start of CD
	b.uint16(totalCount)
	b.uint16(totalCount)
	b.uint32(cdirSize)
	b.uint32(cdirOffset)
	b.uint16(uint16(len(comment)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.Write(comment)
	return err
}
