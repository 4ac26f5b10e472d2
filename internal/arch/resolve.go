package arch

import (
	"fmt"

	"fee/internal/diag"
	"fee/internal/elfhdr"
)

// ModeKind selects how the syscall number is obtained.
type ModeKind uint8

const (
	// ModeDetect classifies the input ELF header (default).
	ModeDetect ModeKind = iota
	// ModeExplicit uses an operator-supplied number as is.
	ModeExplicit
	// ModeByName looks a registry entry up by name.
	ModeByName
	// ModeLookup defers resolution to the generated program.
	ModeLookup
)

func (k ModeKind) String() string {
	switch k {
	case ModeDetect:
		return "detect"
	case ModeExplicit:
		return "explicit"
	case ModeByName:
		return "name"
	case ModeLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Mode is one resolution request. The zero value is ModeDetect.
type Mode struct {
	Kind   ModeKind
	Number uint64
	Name   string
}

// Detection returns the default mode.
func Detection() Mode { return Mode{Kind: ModeDetect} }

// Explicit returns a mode that uses n without consulting the registry.
func Explicit(n uint64) Mode { return Mode{Kind: ModeExplicit, Number: n} }

// ByName returns a mode resolving through the registry entry called name.
func ByName(name string) Mode { return Mode{Kind: ModeByName, Name: name} }

// RuntimeLookup returns a mode deferring resolution to the generated program.
func RuntimeLookup() Mode { return Mode{Kind: ModeLookup} }

// NeedsELF reports whether the mode reads the input header.
func (m Mode) NeedsELF() bool { return m.Kind == ModeDetect }

func (m Mode) String() string {
	switch m.Kind {
	case ModeExplicit:
		return fmt.Sprintf("explicit(%d)", m.Number)
	case ModeByName:
		return fmt.Sprintf("name(%s)", m.Name)
	default:
		return m.Kind.String()
	}
}

// Resolved is either a concrete syscall number or a marker telling the
// generator to look memfd_create up in the target's libc.
type Resolved struct {
	deferred bool
	number   uint64
	arch     Arch
}

// Static returns a concrete resolution. a may be Unknown for explicit numbers.
func Static(n uint64, a Arch) Resolved { return Resolved{number: n, arch: a} }

// Deferred returns the runtime-lookup marker.
func Deferred() Resolved { return Resolved{deferred: true} }

// IsDeferred reports whether resolution happens inside the generated program.
func (r Resolved) IsDeferred() bool { return r.deferred }

// Number returns the syscall number; ok is false for deferred resolutions.
func (r Resolved) Number() (n uint64, ok bool) { return r.number, !r.deferred }

// Arch returns the registry entry the number came from, if any.
func (r Resolved) Arch() Arch { return r.arch }

func (r Resolved) String() string {
	if r.deferred {
		return "memfd_create via libc"
	}
	if r.arch != Unknown {
		return fmt.Sprintf("%d (%s)", r.number, r.arch)
	}
	return fmt.Sprintf("%d", r.number)
}

// Target is the part of a runtime the resolver needs to know about.
type Target interface {
	String() string
	CanCallLibraries() bool
}

// Resolve produces the syscall for mode. c may be nil when no ELF bytes are
// available (stdin payloads).
func Resolve(mode Mode, c *elfhdr.Classification, target Target) (Resolved, error) {
	switch mode.Kind {
	case ModeExplicit:
		return Static(mode.Number, Unknown), nil
	case ModeByName:
		a, err := Parse(mode.Name)
		if err != nil {
			return Resolved{}, err
		}
		return Static(a.Syscall(), a), nil
	case ModeDetect:
		if c == nil {
			return Resolved{}, diag.New(diag.ArchMissingElf, "architecture detection needs the ELF file").
				WithHint("pass --arch <name> or --syscall <number> when the payload comes from stdin")
		}
		a, err := Detect(*c)
		if err != nil {
			return Resolved{}, err
		}
		return Static(a.Syscall(), a), nil
	case ModeLookup:
		if target == nil || !target.CanCallLibraries() {
			name := "<none>"
			if target != nil {
				name = target.String()
			}
			return Resolved{}, diag.New(diag.GenUnsupportedFeature, "runtime %s cannot call into libc to look up memfd_create", name).
				WithHint("pass --arch or --syscall instead of --lookup")
		}
		return Deferred(), nil
	default:
		return Resolved{}, diag.New(diag.OptInvalid, "unknown resolution mode %d", mode.Kind)
	}
}
