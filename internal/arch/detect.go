package arch

import (
	"slices"
	"strings"

	"fee/internal/diag"
	"fee/internal/elfhdr"
)

func (s *Entry) matches(c elfhdr.Classification) bool {
	if s.Class != c.Class || s.Data != c.Data {
		return false
	}
	if !slices.Contains(s.Machines, c.Machine) {
		return false
	}
	return c.Flags&s.FlagsMask == s.FlagsValue
}

// Detect maps a header classification to exactly one registry entry.
// No match and more than one match are both reported as unknown; the
// registry never guesses between ABIs sharing a machine code.
func Detect(c elfhdr.Classification) (Arch, error) {
	var found []Arch
	for _, a := range All() {
		if entries[a].matches(c) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return Unknown, diag.New(diag.ArchUnknown, "no known ABI for %s", c).
			WithHint("pass --syscall <number>, --arch <name> or --lookup")
	default:
		names := make([]string, len(found))
		for i, a := range found {
			names[i] = a.String()
		}
		return Unknown, diag.New(diag.ArchUnknown, "%s is ambiguous between %s", c, strings.Join(names, ", ")).
			WithHint("pass --arch with one of the candidates")
	}
}
