package zipkit

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirCollection is a Collection backed directly by a filesystem directory
// rather than an archive: it walks the tree once to build an Index the
// same shape ZipCollection's central directory gives, and opens files on
// demand instead of seeking into a ZIP payload.
type DirCollection struct {
	root   string
	fsys   fs.FS
	index  *Index
	byPath map[string]string // entry name -> filesystem path, for GetInputStream
	closed bool
}

// OpenDirCollection walks root and builds a DirCollection over every
// regular file and directory found, the same inclusion rule
// templateFromDir used (skip anything that is neither).
func OpenDirCollection(root string) (*DirCollection, error) {
	fsys := os.DirFS(root)
	dc := &DirCollection{
		root:   root,
		fsys:   fsys,
		index:  NewIndex(),
		byPath: make(map[string]string),
	}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !(info.Mode().IsRegular() || info.Mode().IsDir()) {
			return nil
		}

		name := filepath.ToSlash(path)
		ce := &CentralEntry{
			LocalEntry: LocalEntry{
				Entry: Entry{
					Name:     name,
					Modified: info.ModTime(),
					Valid:    true,
				},
			},
		}

		if info.Mode().IsDir() {
			ce.Name += "/"
			ce.Method = Store
			ce.SetMode(info.Mode())
		} else {
			ce.Method = Deflate
			ce.UncompressedSize = uint32(info.Size())
			ce.SetMode(info.Mode())
			crc, err := fileCRC32(fsys, path)
			if err != nil {
				return err
			}
			ce.CRC32 = crc
		}

		dc.byPath[ce.Name] = path
		dc.index.Append(ce)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func fileCRC32(fsys fs.FS, path string) (uint32, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	cw := newCRCWriter(io.Discard)
	if _, err := io.Copy(cw, f); err != nil {
		return 0, err
	}
	return cw.Sum32(), nil
}

// Entries returns the walked tree's entries.
func (dc *DirCollection) Entries() []*CentralEntry {
	return dc.index.Entries()
}

// GetEntry looks up the entry found by Lookup(name, mode).
func (dc *DirCollection) GetEntry(name string, mode MatchMode) (*CentralEntry, bool) {
	return dc.index.Lookup(name, mode)
}

// Size returns the number of entries in the collection.
func (dc *DirCollection) Size() int {
	return dc.index.Len()
}

// Close invalidates the collection. The underlying directory tree isn't
// held open by any resource that needs releasing, so this only flips the
// closed flag that GetInputStream checks.
func (dc *DirCollection) Close() error {
	dc.closed = true
	return nil
}

// GetInputStream returns the raw (uncompressed) bytes of the file found by
// Lookup(name, mode). Directory entries cannot be opened.
func (dc *DirCollection) GetInputStream(name string, mode MatchMode) (io.ReadCloser, error) {
	if dc.closed {
		return nil, newCollectionError("get input stream", "collection is closed")
	}
	ce, ok := dc.index.Lookup(name, mode)
	if !ok {
		return nil, newCollectionError("get input stream", errEntryNotFound.Error())
	}
	if ce.Mode().IsDir() {
		return nil, newCollectionError("get input stream", errUnsupportedEntry.Error())
	}
	path, ok := dc.byPath[ce.Name]
	if !ok {
		return nil, newCollectionError("get input stream", errUnsupportedEntry.Error())
	}
	return dc.fsys.Open(path)
}

// WriteZip streams every entry in the walked tree into a ZipOutputBuf,
// compressing regular files with DEFLATE and recording directories as
// zero-length STORED entries.
func (dc *DirCollection) WriteZip(w io.Writer, level int) error {
	out := NewZipOutputBuf(w)
	if level != 0 {
		out.SetLevel(level)
	}

	for _, ce := range dc.index.Entries() {
		ne := NewEntry{
			Name:           ce.Name,
			Method:         ce.Method,
			Modified:       ce.Modified,
			ExternFileAttr: ce.ExternFileAttr,
		}
		if err := out.PutNextEntry(ne); err != nil {
			return err
		}
		if !ce.Mode().IsDir() {
			path := dc.byPath[ce.Name]
			f, err := dc.fsys.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(out, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		if err := out.CloseEntry(); err != nil {
			return err
		}
	}

	return out.Finish()
}
