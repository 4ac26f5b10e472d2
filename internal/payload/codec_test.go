package payload

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"fee/internal/diag"
)

func sampleInputs() [][]byte {
	rng := rand.New(rand.NewSource(7))
	random := make([]byte, 4096)
	rng.Read(random)
	return [][]byte{
		nil,
		{0x7f},
		[]byte("\x7fELF\x02\x01\x01"),
		bytes.Repeat([]byte("fee"), 1000),
		random,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, in := range sampleInputs() {
		for level := 0; level <= MaxLevel; level++ {
			for _, wrap := range []int{0, 1, 4, 60, 76, 1000} {
				enc, err := Encode(in, level, wrap)
				if err != nil {
					t.Fatalf("Encode(len=%d, level=%d, wrap=%d): %v", len(in), level, wrap, err)
				}
				out, err := Decode(enc.Text)
				if err != nil {
					t.Fatalf("Decode(level=%d, wrap=%d): %v", level, wrap, err)
				}
				if !bytes.Equal(out, in) {
					t.Fatalf("round trip mismatch for len=%d level=%d wrap=%d", len(in), level, wrap)
				}
				if enc.RawSize != len(in) {
					t.Fatalf("RawSize = %d, want %d", enc.RawSize, len(in))
				}
			}
		}
	}
}

func TestWrapWidth(t *testing.T) {
	in := sampleInputs()[4]
	for _, w := range []int{1, 3, 17, 64, 76} {
		enc, err := Encode(in, 6, w)
		if err != nil {
			t.Fatal(err)
		}
		lines := enc.Lines()
		for i, line := range lines {
			if i < len(lines)-1 && len(line) != w {
				t.Fatalf("w=%d: line %d has %d chars", w, i, len(line))
			}
			if i == len(lines)-1 && (len(line) == 0 || len(line) > w) {
				t.Fatalf("w=%d: last line has %d chars", w, len(line))
			}
		}
	}

	enc, err := Encode(in, 6, 0)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(enc.Text, "\n") {
		t.Fatal("w=0 must produce a single line")
	}
}

func TestLevelZeroStores(t *testing.T) {
	in := bytes.Repeat([]byte{0}, 10000)
	stored, err := Encode(in, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	best, err := Encode(in, MaxLevel, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CompressedSize <= len(in) {
		t.Fatalf("level 0 should not shrink input: %d <= %d", stored.CompressedSize, len(in))
	}
	if best.CompressedSize >= stored.CompressedSize {
		t.Fatalf("level %d did not compress: %d >= %d", MaxLevel, best.CompressedSize, stored.CompressedSize)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	in := sampleInputs()[3]
	a, _ := Encode(in, 9, 50)
	b, _ := Encode(in, 9, 50)
	if a != b {
		t.Fatal("identical inputs produced different encodings")
	}
}

func TestEncodeRejectsBadOptions(t *testing.T) {
	for _, tc := range []struct{ level, wrap int }{{-1, 0}, {10, 0}, {5, -1}} {
		if _, err := Encode([]byte("x"), tc.level, tc.wrap); !errors.Is(err, diag.ErrInvalidOption) {
			t.Fatalf("level=%d wrap=%d: expected InvalidOption, got %v", tc.level, tc.wrap, err)
		}
	}
}

func TestFromStdinHasNoText(t *testing.T) {
	enc := FromStdin(76)
	if enc.Text != "" || enc.Lines() != nil || enc.Source != Stdin {
		t.Fatalf("unexpected stdin payload %+v", enc)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("!!!"); err == nil {
		t.Fatal("expected base64 error")
	}
	if _, err := Decode("aGVsbG8="); err == nil {
		t.Fatal("expected zlib error for non-zlib data")
	}
}
