package zipkit

import (
	"bytes"
	"io"
	"testing"
	"time"
)

type zipWriteTest struct {
	Name   string
	Data   []byte
	Method uint16
}

var zipWriteTests = []zipWriteTest{
	{
		Name:   "foo.txt",
		Data:   []byte("Rabbits, guinea pigs, gophers, marsupial rats, and quolls."),
		Method: Store,
	},
	{
		Name:   "bar.txt",
		Data:   bytes.Repeat([]byte("compress me please, over and over "), 200),
		Method: Deflate,
	},
	{
		Name:   "empty.txt",
		Data:   nil,
		Method: Store,
	},
	{
		Name:   "executable",
		Data:   []byte("#!/bin/sh\necho hi\n"),
		Method: Deflate,
	},
}

func TestZipWriterReaderRoundTrip(t *testing.T) {
	sb := &seekBuffer{}
	out := NewZipOutputBuf(sb)
	out.SetComment("test archive")

	for _, wt := range zipWriteTests {
		ne := NewEntry{
			Name:     wt.Name,
			Method:   wt.Method,
			Modified: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
		if err := out.PutNextEntry(ne); err != nil {
			t.Fatalf("PutNextEntry(%q): %v", wt.Name, err)
		}
		if _, err := out.Write(wt.Data); err != nil {
			t.Fatalf("Write(%q): %v", wt.Name, err)
		}
		if err := out.CloseEntry(); err != nil {
			t.Fatalf("CloseEntry(%q): %v", wt.Name, err)
		}
	}
	if err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	in, err := NewZipInputBuf(bytes.NewReader(sb.Bytes()), 0)
	if err != nil {
		t.Fatalf("NewZipInputBuf: %v", err)
	}
	for _, wt := range zipWriteTests {
		entry, err := in.GetNextEntry()
		if err != nil {
			t.Fatalf("GetNextEntry: %v", err)
		}
		if entry.Name != wt.Name {
			t.Fatalf("Name = %q, want %q", entry.Name, wt.Name)
		}
		data, err := io.ReadAll(in)
		if err != nil {
			t.Fatalf("read %q: %v", wt.Name, err)
		}
		if len(data) != len(wt.Data) || (len(data) > 0 && !bytes.Equal(data, wt.Data)) {
			t.Errorf("%q: data mismatch: got %q, want %q", wt.Name, data, wt.Data)
		}
	}
}

func TestZipOutputBufRequiresSeeker(t *testing.T) {
	out := NewZipOutputBuf(nonSeekableWriter{})
	err := out.PutNextEntry(NewEntry{Name: "x"})
	if err == nil {
		t.Fatal("expected InvalidStateError for non-seekable sink")
	}
	if _, ok := err.(*InvalidStateError); !ok {
		t.Errorf("err = %T, want *InvalidStateError", err)
	}
}

func TestZipOutputBufWriteAfterFinish(t *testing.T) {
	out := NewZipOutputBuf(&seekBuffer{})
	if err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := out.PutNextEntry(NewEntry{Name: "x"}); err == nil {
		t.Fatal("expected error after Finish")
	}
}

func TestZipCollectionOpenAndLookup(t *testing.T) {
	sb := &seekBuffer{}
	out := NewZipOutputBuf(sb)
	for _, wt := range zipWriteTests {
		if err := out.PutNextEntry(NewEntry{Name: wt.Name, Method: wt.Method}); err != nil {
			t.Fatalf("PutNextEntry: %v", err)
		}
		if _, err := out.Write(wt.Data); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := out.CloseEntry(); err != nil {
			t.Fatalf("CloseEntry: %v", err)
		}
	}
	if err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	ra := bytes.NewReader(sb.Bytes())
	coll, err := OpenZipCollection(ra, int64(ra.Len()))
	if err != nil {
		t.Fatalf("OpenZipCollection: %v", err)
	}
	if coll.Size() != len(zipWriteTests) {
		t.Fatalf("Size() = %d, want %d", coll.Size(), len(zipWriteTests))
	}
	if len(coll.Entries()) != len(zipWriteTests) {
		t.Fatalf("len(Entries()) = %d, want %d", len(coll.Entries()), len(zipWriteTests))
	}

	if _, ok := coll.GetEntry("bar.txt", Ignore); !ok {
		t.Fatal("GetEntry(bar.txt) not found")
	}

	rc, err := coll.GetInputStream("bar.txt", Ignore)
	if err != nil {
		t.Fatalf("GetInputStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, zipWriteTests[1].Data) {
		t.Error("data mismatch reading through Collection")
	}

	if _, err := coll.GetInputStream("nope.txt", Ignore); err == nil {
		t.Fatal("expected error for missing entry")
	}

	if err := coll.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := coll.GetInputStream("bar.txt", Ignore); err == nil {
		t.Fatal("expected error reading from a closed collection")
	}
}

// seekBuffer is an in-memory io.Writer + io.Seeker backed by a growable byte
// slice, the role os.File plays for ZipOutputBuf in production.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	n := copy(s.data[s.pos:end], p)
	s.pos += int64(n)
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = int64(len(s.data)) + offset
	}
	if target < 0 {
		return 0, newInvalidStateError("seek", "negative position")
	}
	s.pos = target
	return target, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.data
}

type nonSeekableWriter struct{}

func (nonSeekableWriter) Write(p []byte) (int, error) { return len(p), nil }
