package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown or uncoded failure
	UnknownCode Code = 0

	// ELF header
	ElfInfo      Code = 1000
	ElfMalformed Code = 1001

	// Architecture resolution
	ArchInfo       Code = 2000
	ArchUnknown    Code = 2001
	ArchMissingElf Code = 2002

	// Code generation
	GenInfo               Code = 3000
	GenUnsupportedFeature Code = 3001
	GenUnknownRuntime     Code = 3002

	// Options and configuration
	OptInfo    Code = 4000
	OptInvalid Code = 4001
	OptConfig  Code = 4002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		ElfInfo:               "ELF information",
		ElfMalformed:          "Malformed ELF input",
		ArchInfo:              "Architecture information",
		ArchUnknown:           "Unknown architecture",
		ArchMissingElf:        "ELF data required for architecture detection",
		GenInfo:               "Generator information",
		GenUnsupportedFeature: "Runtime does not support the requested feature",
		GenUnknownRuntime:     "Unknown target runtime",
		OptInfo:               "Option information",
		OptInvalid:            "Invalid option value",
		OptConfig:             "Invalid configuration",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("ELF%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ARC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OPT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Recoverable reports whether the operator can retry with different options
// (an explicit syscall number or runtime lookup) instead of fixing the input.
func (c Code) Recoverable() bool {
	return c == ArchUnknown
}
