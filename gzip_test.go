package zipkit

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"
)

func TestGzipOutputBufReadableByStdlib(t *testing.T) {
	want := []byte("payload written by GzipOutputBuf, read back by compress/gzip")

	var buf bytes.Buffer
	out, err := NewGzipOutputBuf(&buf, GzipHeader{
		Name:     "hello.txt",
		Modified: time.Date(2021, time.June, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewGzipOutputBuf: %v", err)
	}
	if _, err := out.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("stdlib gzip.NewReader: %v", err)
	}
	if zr.Name != "hello.txt" {
		t.Errorf("Name = %q, want %q", zr.Name, "hello.txt")
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("stdlib read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGzipInputBufReadsStdlibOutput(t *testing.T) {
	want := []byte("payload written by compress/gzip, read back by GzipInputBuf")

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		t.Fatalf("stdlib gzip.NewWriterLevel: %v", err)
	}
	zw.Name = "from-stdlib.txt"
	zw.Comment = "a comment"
	if _, err := zw.Write(want); err != nil {
		t.Fatalf("stdlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("stdlib close: %v", err)
	}

	in, err := NewGzipInputBuf(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewGzipInputBuf: %v", err)
	}
	if in.Name != "from-stdlib.txt" {
		t.Errorf("Name = %q, want %q", in.Name, "from-stdlib.txt")
	}
	if in.Comment != "a comment" {
		t.Errorf("Comment = %q, want %q", in.Comment, "a comment")
	}
	got, err := io.ReadAll(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGzipInputBufTrailerCRCMismatch(t *testing.T) {
	var buf bytes.Buffer
	out, err := NewGzipOutputBuf(&buf, GzipHeader{})
	if err != nil {
		t.Fatalf("NewGzipOutputBuf: %v", err)
	}
	out.Write([]byte("some bytes"))
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	corrupted := buf.Bytes()
	// Flip a bit in the trailer's CRC-32 field (last 8 bytes are the
	// trailer; the CRC occupies the first 4 of those).
	corrupted[len(corrupted)-8] ^= 0xff

	in, err := NewGzipInputBuf(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatalf("NewGzipInputBuf: %v", err)
	}
	if _, err := io.ReadAll(in); err == nil {
		t.Fatal("expected trailer CRC mismatch error")
	}
}

func TestGzipOutputBufWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	out, _ := NewGzipOutputBuf(&buf, GzipHeader{})
	out.Close()
	if _, err := out.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing after close")
	}
}
