package zipkit

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	want := []byte("the quick brown fox jumps over the lazy dog, repeated: " +
		"the quick brown fox jumps over the lazy dog")

	var compressed bytes.Buffer
	def, err := NewDeflateOutputBuf(&compressed, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("NewDeflateOutputBuf: %v", err)
	}
	if _, err := def.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := def.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if def.UncompressedCount() != int64(len(want)) {
		t.Errorf("UncompressedCount() = %d, want %d", def.UncompressedCount(), len(want))
	}
	if got, want := def.CRC32(), crc32.ChecksumIEEE(want); got != want {
		t.Errorf("CRC32() = %#x, want %#x", got, want)
	}

	inf := NewInflateInputBuf(bytes.NewReader(compressed.Bytes()))
	got, err := readAllFromInflate(inf)
	if err != nil {
		t.Fatalf("inflate read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %q, want %q", got, want)
	}
	if inf.CRC32() != crc32.ChecksumIEEE(want) {
		t.Errorf("inflate CRC32() = %#x, want %#x", inf.CRC32(), crc32.ChecksumIEEE(want))
	}
}

func TestDeflateCRC32KnownValue(t *testing.T) {
	data := []byte("hello, zip")
	var compressed bytes.Buffer
	def, err := NewDeflateOutputBuf(&compressed, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("NewDeflateOutputBuf: %v", err)
	}
	def.Write(data)
	def.Finish()

	want := crc32.ChecksumIEEE(data)
	if def.CRC32() != want {
		t.Errorf("CRC32() = %#x, want %#x", def.CRC32(), want)
	}
}

func TestDeflateWriteAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	def, _ := NewDeflateOutputBuf(&buf, 0)
	def.Finish()
	if _, err := def.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing after Finish")
	}
}

func TestDeflateSync(t *testing.T) {
	var buf bytes.Buffer
	def, _ := NewDeflateOutputBuf(&buf, 0)
	def.Write([]byte("partial"))
	if err := def.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected Sync to flush some bytes to the lower sink")
	}
	def.Finish()
}

func readAllFromInflate(inf *InflateInputBuf) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := inf.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
	}
}
