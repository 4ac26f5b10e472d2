package codegen

import (
	"fmt"
	"strings"
)

func printable(b byte) bool { return b >= 0x20 && b < 0x7f }

// escapeBytes writes s byte by byte, escaping the bytes listed in special
// with a backslash and everything outside printable ASCII as \xNN.
func escapeBytes(s, special string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case strings.IndexByte(special, b) >= 0:
			sb.WriteByte('\\')
			sb.WriteByte(b)
		case printable(b):
			sb.WriteByte(b)
		default:
			fmt.Fprintf(&sb, "\\x%02x", b)
		}
	}
	return sb.String()
}

// pyBytes renders a Python bytes literal valid in both Python 2 and 3.
func pyBytes(s string) string { return "b'" + escapeBytes(s, `\'`) + "'" }

// perlString renders a non-interpolating Perl double-quoted string.
func perlString(s string) string { return `"` + escapeBytes(s, `\"$@`) + `"` }

// rubyString renders a non-interpolating Ruby double-quoted string.
func rubyString(s string) string { return `"` + escapeBytes(s, `\"#`) + `"` }

// phpString renders a non-interpolating PHP double-quoted string.
func phpString(s string) string { return `"` + escapeBytes(s, `\"$`) + `"` }

func joinQuoted(items []string, quote func(string) string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = quote(it)
	}
	return strings.Join(parts, ", ")
}
