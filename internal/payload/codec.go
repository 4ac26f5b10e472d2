// Package payload compresses and text-encodes binaries for embedding in
// generated loaders.
package payload

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"fee/internal/diag"
)

// MaxLevel is the strongest zlib effort level.
const MaxLevel = zlib.BestCompression

// Source says where the generated program gets its payload from.
type Source uint8

const (
	// Embedded payloads are literals inside the generated program.
	Embedded Source = iota
	// Stdin payloads are read by the generated program at run time.
	Stdin
)

func (s Source) String() string {
	if s == Stdin {
		return "stdin"
	}
	return "embedded"
}

// Encoded is a zlib-compressed, base64-encoded payload.
type Encoded struct {
	Text      string
	WrapWidth int
	Source    Source

	RawSize        int
	CompressedSize int
}

// FromStdin returns the marker for payloads the generated program reads
// from standard input. Text is always empty.
func FromStdin(wrap int) Encoded {
	return Encoded{WrapWidth: wrap, Source: Stdin}
}

// Lines splits Text at the inserted line breaks.
func (e Encoded) Lines() []string {
	if e.Source == Stdin || e.Text == "" {
		return nil
	}
	return strings.Split(e.Text, "\n")
}

// CheckOptions validates a compression level and wrap width.
func CheckOptions(level, wrap int) error {
	if level < 0 || level > MaxLevel {
		return diag.New(diag.OptInvalid, "compression level %d out of range 0-%d", level, MaxLevel)
	}
	if wrap < 0 {
		return diag.New(diag.OptInvalid, "wrap width %d must not be negative", wrap)
	}
	return nil
}

// Encode compresses data at level (0 stores without compression) and
// base64-encodes it, inserting a line break after every wrap characters
// when wrap > 0.
func Encode(data []byte, level, wrap int) (Encoded, error) {
	if err := CheckOptions(level, wrap); err != nil {
		return Encoded{}, err
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return Encoded{}, fmt.Errorf("zlib: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return Encoded{}, fmt.Errorf("zlib: %w", err)
	}
	if err := zw.Close(); err != nil {
		return Encoded{}, fmt.Errorf("zlib: %w", err)
	}
	text := base64.StdEncoding.EncodeToString(buf.Bytes())
	return Encoded{
		Text:           Wrap(text, wrap),
		WrapWidth:      wrap,
		Source:         Embedded,
		RawSize:        len(data),
		CompressedSize: buf.Len(),
	}, nil
}

// Wrap breaks s into lines of exactly width characters (the last may be
// shorter). width <= 0 returns s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/width)
	for i := 0; i < len(s); i += width {
		if i > 0 {
			sb.WriteByte('\n')
		}
		end := min(i+width, len(s))
		sb.WriteString(s[i:end])
	}
	return sb.String()
}

// Decode reverses Encode, ignoring line breaks.
func Decode(text string) ([]byte, error) {
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(text)
	compressed, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out, nil
}
