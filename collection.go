package zipkit

import "io"

// Collection is a named set of entries that can be listed and opened for
// reading by name, the shared interface ZipCollection (archive-backed) and
// DirCollection (directory-backed) both satisfy.
type Collection interface {
	// Entries returns every entry in the collection, in index order.
	Entries() []*CentralEntry
	// GetEntry looks up the entry found by Lookup(name, mode).
	GetEntry(name string, mode MatchMode) (*CentralEntry, bool)
	// GetInputStream returns a stream of the uncompressed bytes of the
	// entry found by Lookup(name, mode), or an error if no such entry
	// exists.
	GetInputStream(name string, mode MatchMode) (io.ReadCloser, error)
	// Size returns the number of entries in the collection.
	Size() int
	// Close invalidates the collection; GetInputStream calls made after
	// Close return an error.
	Close() error
}

// ZipCollection is a Collection backed by a single archive opened through
// its central directory.
type ZipCollection struct {
	ra   io.ReaderAt
	size int64

	index  *Index
	eocd   *EndOfCentralDirectory
	closed bool
}

// OpenZipCollection reads the end of central directory record and then
// every central directory entry, building an Index over them.
func OpenZipCollection(ra io.ReaderAt, size int64) (*ZipCollection, error) {
	eocd, err := locateEOCD(ra, size)
	if err != nil {
		return nil, err
	}

	sr := io.NewSectionReader(ra, int64(eocd.CDirOffset), int64(eocd.CDirSize))
	idx := NewIndex()
	for i := 0; i < int(eocd.TotalCount); i++ {
		ce, err := readCentralHeader(sr)
		if err != nil {
			return nil, err
		}
		idx.Append(ce)
	}

	return &ZipCollection{ra: ra, size: size, index: idx, eocd: eocd}, nil
}

// Entries returns the collection's central directory entries.
func (c *ZipCollection) Entries() []*CentralEntry {
	return c.index.Entries()
}

// GetEntry looks up the entry found by Lookup(name, mode).
func (c *ZipCollection) GetEntry(name string, mode MatchMode) (*CentralEntry, bool) {
	return c.index.Lookup(name, mode)
}

// Size returns the number of entries in the collection.
func (c *ZipCollection) Size() int {
	return c.index.Len()
}

// Close marks the collection invalid and, if the underlying ReaderAt is
// also an io.Closer, closes it.
func (c *ZipCollection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.ra.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// GetInputStream locates the entry and returns a stream of its
// uncompressed bytes, backed by a ZipInputBuf positioned at the entry's
// local header.
func (c *ZipCollection) GetInputStream(name string, mode MatchMode) (io.ReadCloser, error) {
	if c.closed {
		return nil, newCollectionError("get input stream", "collection is closed")
	}
	ce, ok := c.index.Lookup(name, mode)
	if !ok {
		return nil, newCollectionError("get input stream", errEntryNotFound.Error())
	}
	return c.openEntry(ce)
}

func (c *ZipCollection) openEntry(ce *CentralEntry) (io.ReadCloser, error) {
	sr := io.NewSectionReader(c.ra, int64(ce.EntryOffset), c.size-int64(ce.EntryOffset))
	zb, err := NewZipInputBuf(sr, 0)
	if err != nil {
		return nil, err
	}
	local, err := zb.GetNextEntry()
	if err != nil {
		return nil, err
	}
	if !local.Valid {
		return nil, newCollectionError("get input stream", errUnsupportedEntry.Error())
	}
	return &entryReadCloser{buf: zb}, nil
}

// entryReadCloser adapts ZipInputBuf's current-entry Read/CloseEntry pair
// to io.ReadCloser for Collection.GetInputStream callers.
type entryReadCloser struct {
	buf *ZipInputBuf
}

func (r *entryReadCloser) Read(p []byte) (int, error) {
	return r.buf.Read(p)
}

func (r *entryReadCloser) Close() error {
	return r.buf.CloseEntry()
}

var (
	errEntryNotFound    = simpleError("entry not found")
	errUnsupportedEntry = simpleError("entry uses an unsupported feature and cannot be read")
)
