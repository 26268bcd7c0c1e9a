package codec

import (
	"bytes"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	comp, err := NewCompressor()
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer comp.Close()

	decomp, err := NewDecompressor()
	if err != nil {
		t.Fatalf("NewDecompressor failed: %v", err)
	}
	defer decomp.Close()

	payload := bytes.Repeat([]byte("SELECT * FROM flights WHERE dep = :dep;"), 64)

	compressed, err := comp.Compress(payload)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Errorf("Repetitive payload did not shrink: %d -> %d", len(payload), len(compressed))
	}

	out, err := decomp.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("Round trip changed the payload")
	}
}

func TestCompressEmpty(t *testing.T) {
	comp, err := NewCompressor()
	if err != nil {
		t.Fatal(err)
	}
	defer comp.Close()

	out, err := comp.Compress(nil)
	if err != nil {
		t.Fatalf("Compress(nil) failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Expected empty output, got %d bytes", len(out))
	}
}

func TestDecompressGarbage(t *testing.T) {
	decomp, err := NewDecompressor()
	if err != nil {
		t.Fatal(err)
	}
	defer decomp.Close()

	if _, err := decomp.Decompress([]byte("not zstd")); err == nil {
		t.Fatal("Expected error for invalid payload")
	}
}
