package zipkit

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"go4.org/readerutil"
)

// StaticEntry describes one file to bake into an HTTPArchive. Unlike
// ZipOutputBuf's streaming NewEntry, every size and the CRC-32 must be
// known up front, since HTTPArchive assembles the whole archive as a
// concatenation of byte ranges rather than a single write pass: there is
// nothing to back-patch because nothing is written until every size is
// already known.
type StaticEntry struct {
	Name             string
	Content          io.ReaderAt // nil for a directory entry
	CompressedSize   int64
	UncompressedSize int64
	CRC32            uint32
	Method           uint16
	Modified         time.Time
	ExternFileAttr   uint32
	Comment          string
}

// HTTPArchive serves a fully-assembled ZIP archive over HTTP with byte
// range support. Every part (local headers, content, central directory,
// EOCD) is a ReaderAt already, so the whole archive is just their
// concatenation via go4.org/readerutil's MultiReaderAt.
type HTTPArchive struct {
	parts      readerutil.SizeReaderAt
	createTime time.Time
	etag       string
}

// NewHTTPArchive assembles entries into a seekable, range-servable ZIP
// byte stream. comment is the archive comment; createTime, if zero,
// defaults to the latest entry modification time.
func NewHTTPArchive(entries []StaticEntry, comment string, createTime time.Time) (*HTTPArchive, error) {
	if len(comment) > uint16max {
		return nil, newInvalidStateError("new http archive", "comment too long")
	}

	etagHash := md5.New()
	var parts []readerutil.SizeReaderAt
	var offset int64
	var maxTime time.Time
	central := make([]*CentralEntry, 0, len(entries))

	for _, se := range entries {
		extAttr := se.ExternFileAttr
		if extAttr == 0 {
			extAttr = defaultExternalAttr
		}
		extra := writeExtTimeExtra(nil, se.Modified)

		ce := &CentralEntry{
			LocalEntry: LocalEntry{
				Entry: Entry{
					Name:             se.Name,
					UncompressedSize: uint32(se.UncompressedSize),
					CompressedSize:   uint32(se.CompressedSize),
					CRC32:            se.CRC32,
					Modified:         se.Modified,
					Method:           se.Method,
					Extra:            extra,
					ExtractVersion:   zipVersion20,
					Valid:            true,
				},
				EntryOffset: uint32(offset),
			},
			WriterVersion:  writerVersion(),
			ExternFileAttr: extAttr,
			Comment:        se.Comment,
		}
		utf8Valid1, utf8Require1 := detectUTF8(ce.Name)
		utf8Valid2, utf8Require2 := detectUTF8(ce.Comment)
		if (utf8Require1 || utf8Require2) && utf8Valid1 && utf8Valid2 {
			ce.Flags |= utf8Flag
		}

		var hdrBuf bytes.Buffer
		if err := writeLocalHeader(&hdrBuf, &ce.LocalEntry); err != nil {
			return nil, err
		}
		hdrPart := bytes.NewReader(hdrBuf.Bytes())
		parts = append(parts, hdrPart)
		etagHash.Write(hdrBuf.Bytes())
		offset += int64(hdrPart.Size())

		if se.Content != nil {
			if se.CompressedSize > 0 {
				contentPart := io.NewSectionReader(se.Content, 0, se.CompressedSize)
				parts = append(parts, contentPart)
				offset += se.CompressedSize
				io.Copy(etagHash, io.NewSectionReader(se.Content, 0, se.CompressedSize))
			}
		} else if se.CompressedSize != 0 {
			return nil, newInvalidStateError("new http archive", "nil content with nonzero size")
		}

		central = append(central, ce)
		if se.Modified.After(maxTime) {
			maxTime = se.Modified
		}
	}

	cdirOffset := offset
	var cdirBuf bytes.Buffer
	for _, ce := range central {
		if err := writeCentralHeader(&cdirBuf, ce); err != nil {
			return nil, err
		}
	}
	cdirPart := bytes.NewReader(cdirBuf.Bytes())
	parts = append(parts, cdirPart)
	etagHash.Write(cdirBuf.Bytes())
	offset += int64(cdirPart.Size())

	var eocdBuf bytes.Buffer
	if err := writeEOCD(&eocdBuf, uint16(len(central)), uint32(cdirBuf.Len()), uint32(cdirOffset), []byte(comment)); err != nil {
		return nil, err
	}
	eocdPart := bytes.NewReader(eocdBuf.Bytes())
	parts = append(parts, eocdPart)
	etagHash.Write(eocdBuf.Bytes())

	if createTime.IsZero() {
		createTime = maxTime
	}

	return &HTTPArchive{
		parts:      readerutil.NewMultiReaderAt(parts...),
		createTime: createTime,
		etag:       fmt.Sprintf("%q", hex.EncodeToString(etagHash.Sum(nil))),
	}, nil
}

// Size returns the size of the assembled archive in bytes.
func (a *HTTPArchive) Size() int64 { return a.parts.Size() }

// ReadAt implements io.ReaderAt over the assembled archive.
func (a *HTTPArchive) ReadAt(p []byte, off int64) (int, error) {
	return a.parts.ReadAt(p, off)
}

// ServeHTTP serves the archive with range-request support via
// http.ServeContent, setting Content-Type and Etag if the caller hasn't
// already.
func (a *HTTPArchive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.Header()["Content-Type"]; !ok {
		w.Header().Set("Content-Type", "application/zip")
	}
	if _, ok := w.Header()["Etag"]; !ok {
		w.Header().Set("Etag", a.etag)
	}
	sr := io.NewSectionReader(a.parts, 0, a.parts.Size())
	http.ServeContent(w, r, "", a.createTime, sr)
}
