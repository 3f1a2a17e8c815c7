package zipkit

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
)

func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}
	return buf.Bytes()
}

func TestInflateInputBufReadsRawStream(t *testing.T) {
	want := []byte("some text to compress for a unit test, repeated for ratio: some text to compress")
	compressed := deflateRaw(t, want)

	inf := NewInflateInputBuf(bytes.NewReader(compressed))
	got, err := readAllFromInflate(inf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInflateInputBufReset(t *testing.T) {
	first := deflateRaw(t, []byte("first stream"))
	second := deflateRaw(t, []byte("second stream, different content"))

	inf := NewInflateInputBuf(bytes.NewReader(first))
	got1, err := readAllFromInflate(inf)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if string(got1) != "first stream" {
		t.Errorf("first stream = %q, want %q", got1, "first stream")
	}

	inf.Reset(bytes.NewReader(second))
	got2, err := readAllFromInflate(inf)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if string(got2) != "second stream, different content" {
		t.Errorf("second stream = %q, want %q", got2, "second stream, different content")
	}
}

func TestInflateInputBufStopsAtStreamEnd(t *testing.T) {
	compressed := deflateRaw(t, []byte("payload"))
	trailing := append(append([]byte(nil), compressed...), "garbage past the stream"...)

	inf := NewInflateInputBuf(bytes.NewReader(trailing))
	got, err := readAllFromInflate(inf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}
}
