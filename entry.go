package zipkit

import (
	"os"
	"time"
	"unicode/utf8"
)

// Compression methods supported by this module. Any other value read from
// an archive marks the entry invalid rather than aborting the read (see
// localheader.go).
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // raw DEFLATE
)

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50

	fileHeaderLen      = 30 // + filename + extra
	directoryHeaderLen = 46 // + filename + extra + comment
	directoryEndLen    = 22 // + comment

	zipVersion20 = 20 // 2.0, the only version this module emits

	uint16max = 1<<16 - 1
	uint32max = 1<<32 - 1
)

// Constants for the high byte of CreatorVersion / writer_version.
const (
	creatorFAT    = 0
	creatorUnix   = 3
	creatorNTFS   = 11
	creatorVFAT   = 14
	creatorMacOSX = 19
)

// dataDescriptorFlag is general-purpose bit 3. This module rejects entries
// that set it on read and never sets it on write, since ZipOutputBuf
// always back-patches sizes into the local header instead.
const dataDescriptorFlag = 0x8

const utf8Flag = 0x800

// Entry holds the fields shared by a local header and a central directory
// record.
type Entry struct {
	Name             string
	UncompressedSize uint32
	CompressedSize   uint32
	CRC32            uint32
	Modified         time.Time
	Method           uint16
	Extra            []byte
	Flags            uint16
	ExtractVersion   uint16
	WriterVersion    uint16
	Valid            bool
}

// LocalEntry is an Entry plus the fields only a local header carries: its
// own offset in the archive and its on-disk header length.
type LocalEntry struct {
	Entry
	EntryOffset uint32 // absolute byte offset of the local header, 0 if unknown
}

// HeaderSize is the on-disk length of the local header, signature through
// the end of the extra field: 30 + len(name) + len(extra).
func (e *LocalEntry) HeaderSize() uint32 {
	return fileHeaderLen + uint32(len(e.Name)) + uint32(len(e.Extra))
}

// CentralEntry extends LocalEntry with the fields only found in the
// central directory record.
type CentralEntry struct {
	LocalEntry
	Comment        string
	DiskNumStart   uint16
	InternFileAttr uint16
	ExternFileAttr uint32
}

// CDirHeaderSize is the on-disk length of the central directory record:
// 46 + len(name) + len(extra) + len(comment).
func (e *CentralEntry) CDirHeaderSize() uint32 {
	return directoryHeaderLen + uint32(len(e.Name)) + uint32(len(e.Extra)) + uint32(len(e.Comment))
}

// clone returns a value copy of e with its own Extra slice, so that
// mutating the copy leaves e unchanged.
func (e *CentralEntry) clone() *CentralEntry {
	cp := *e
	cp.Extra = append([]byte(nil), e.Extra...)
	return &cp
}

// Unix mode bits. The ZIP format itself doesn't define these, but every
// major tool agrees on them.
const (
	sIFMT   = 0xf000
	sIFSOCK = 0xc000
	sIFLNK  = 0xa000
	sIFREG  = 0x8000
	sIFBLK  = 0x6000
	sIFDIR  = 0x4000
	sIFCHR  = 0x2000
	sIFIFO  = 0x1000
	sISUID  = 0x800
	sISGID  = 0x400
	sISVTX  = 0x200

	msdosDir      = 0x10
	msdosReadOnly = 0x01
)

// Mode returns the permission and mode bits this entry's attribute word
// encodes, interpreting ExternFileAttr according to the creator byte of
// WriterVersion, the same as archive/zip.
func (e *CentralEntry) Mode() (mode os.FileMode) {
	switch e.WriterVersion >> 8 {
	case creatorUnix, creatorMacOSX:
		mode = unixModeToFileMode(e.ExternFileAttr >> 16)
	case creatorNTFS, creatorVFAT, creatorFAT:
		mode = msdosModeToFileMode(e.ExternFileAttr)
	}
	if len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/' {
		mode |= os.ModeDir
	}
	return mode
}

// SetMode encodes mode into ExternFileAttr and stamps WriterVersion with
// the UNIX creator byte.
func (e *CentralEntry) SetMode(mode os.FileMode) {
	e.WriterVersion = e.WriterVersion&0xff | creatorUnix<<8
	e.ExternFileAttr = fileModeToUnixMode(mode) << 16

	if mode&os.ModeDir != 0 {
		e.ExternFileAttr |= msdosDir
	}
	if mode&0200 == 0 {
		e.ExternFileAttr |= msdosReadOnly
	}
}

func msdosModeToFileMode(m uint32) (mode os.FileMode) {
	if m&msdosDir != 0 {
		mode = os.ModeDir | 0777
	} else {
		mode = 0666
	}
	if m&msdosReadOnly != 0 {
		mode &^= 0222
	}
	return mode
}

func fileModeToUnixMode(mode os.FileMode) uint32 {
	var m uint32
	switch mode & os.ModeType {
	default:
		m = sIFREG
	case os.ModeDir:
		m = sIFDIR
	case os.ModeSymlink:
		m = sIFLNK
	case os.ModeNamedPipe:
		m = sIFIFO
	case os.ModeSocket:
		m = sIFSOCK
	case os.ModeDevice, os.ModeDevice | os.ModeCharDevice:
		if mode&os.ModeCharDevice != 0 {
			m = sIFCHR
		} else {
			m = sIFBLK
		}
	}
	if mode&os.ModeSetuid != 0 {
		m |= sISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= sISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= sISVTX
	}
	return m | uint32(mode&0777)
}

func unixModeToFileMode(m uint32) os.FileMode {
	mode := os.FileMode(m & 0777)
	switch m & sIFMT {
	case sIFBLK:
		mode |= os.ModeDevice
	case sIFCHR:
		mode |= os.ModeDevice | os.ModeCharDevice
	case sIFDIR:
		mode |= os.ModeDir
	case sIFIFO:
		mode |= os.ModeNamedPipe
	case sIFLNK:
		mode |= os.ModeSymlink
	case sIFREG:
	case sIFSOCK:
		mode |= os.ModeSocket
	}
	if m&sISGID != 0 {
		mode |= os.ModeSetgid
	}
	if m&sISUID != 0 {
		mode |= os.ModeSetuid
	}
	if m&sISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// detectUTF8 reports whether s is valid UTF-8, and whether it requires the
// UTF-8 flag to be set to survive a CP-437 reader.
func detectUTF8(s string) (valid, require bool) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r < 0x20 || r > 0x7d || r == 0x5c {
			if !utf8.ValidRune(r) || (r == utf8.RuneError && size == 1) {
				return false, false
			}
			require = true
		}
	}
	return true, require
}
