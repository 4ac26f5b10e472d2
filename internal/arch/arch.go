// Package arch holds the registry of Linux ABIs and their memfd_create
// syscall numbers, and resolves which number a generated loader should use.
package arch

import (
	"debug/elf"
	"sort"
	"strings"

	"fee/internal/diag"
)

// Arch identifies one Linux syscall ABI. The set is closed: new ABIs are
// added here, together with a row in entries.
type Arch uint8

const (
	Unknown Arch = iota
	I386
	X86_64
	X32
	ARM
	ARMBE
	AArch64
	AArch64BE
	MIPS
	MIPSEL
	MIPSN32
	MIPSN32EL
	MIPS64
	MIPS64EL
	PPC
	PPC64
	PPC64LE
	S390X
	RISCV32
	RISCV64
	LoongArch64
	SPARC
	SPARC64
	Alpha
	PARISC
	M68K

	numArchs
)

// efMIPSABI2 marks the n32 ABI in e_flags of 32-bit MIPS objects.
const efMIPSABI2 = 0x20

// Entry describes one registry entry.
type Entry struct {
	Name     string
	Class    elf.Class
	Data     elf.Data
	Machines []elf.Machine
	// FlagsMask/FlagsValue restrict matching to headers whose
	// e_flags&FlagsMask == FlagsValue. A zero mask matches any flags.
	FlagsMask  uint32
	FlagsValue uint32
	Syscall    uint64
}

var entries = [numArchs]Entry{
	I386:        {Name: "i386", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_386}, Syscall: 356},
	X86_64:      {Name: "x86_64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_X86_64}, Syscall: 319},
	X32:         {Name: "x32", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_X86_64}, Syscall: 0x40000000 + 319},
	ARM:         {Name: "arm", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_ARM}, Syscall: 385},
	ARMBE:       {Name: "armbe", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_ARM}, Syscall: 385},
	AArch64:     {Name: "aarch64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_AARCH64}, Syscall: 279},
	AArch64BE:   {Name: "aarch64_be", Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_AARCH64}, Syscall: 279},
	MIPS:        {Name: "mips", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_MIPS}, FlagsMask: efMIPSABI2, Syscall: 4354},
	MIPSEL:      {Name: "mipsel", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_MIPS, elf.EM_MIPS_RS3_LE}, FlagsMask: efMIPSABI2, Syscall: 4354},
	MIPSN32:     {Name: "mipsn32", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_MIPS}, FlagsMask: efMIPSABI2, FlagsValue: efMIPSABI2, Syscall: 6318},
	MIPSN32EL:   {Name: "mipsn32el", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_MIPS, elf.EM_MIPS_RS3_LE}, FlagsMask: efMIPSABI2, FlagsValue: efMIPSABI2, Syscall: 6318},
	MIPS64:      {Name: "mips64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_MIPS}, Syscall: 5314},
	MIPS64EL:    {Name: "mips64el", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_MIPS, elf.EM_MIPS_RS3_LE}, Syscall: 5314},
	PPC:         {Name: "ppc", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_PPC}, Syscall: 360},
	PPC64:       {Name: "ppc64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_PPC64}, Syscall: 360},
	PPC64LE:     {Name: "ppc64le", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_PPC64}, Syscall: 360},
	S390X:       {Name: "s390x", Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_S390}, Syscall: 350},
	RISCV32:     {Name: "riscv32", Class: elf.ELFCLASS32, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_RISCV}, Syscall: 279},
	RISCV64:     {Name: "riscv64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_RISCV}, Syscall: 279},
	LoongArch64: {Name: "loongarch64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_LOONGARCH}, Syscall: 279},
	SPARC:       {Name: "sparc", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_SPARC, elf.EM_SPARC32PLUS}, Syscall: 348},
	SPARC64:     {Name: "sparc64", Class: elf.ELFCLASS64, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_SPARCV9}, Syscall: 348},
	Alpha:       {Name: "alpha", Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Machines: []elf.Machine{elf.EM_ALPHA}, Syscall: 512},
	PARISC:      {Name: "parisc", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_PARISC}, Syscall: 340},
	M68K:        {Name: "m68k", Class: elf.ELFCLASS32, Data: elf.ELFDATA2MSB, Machines: []elf.Machine{elf.EM_68K}, Syscall: 353},
}

// aliases maps alternative spellings (including GOARCH names) to entries.
var aliases = map[string]Arch{
	"amd64":    X86_64,
	"x86-64":   X86_64,
	"x64":      X86_64,
	"386":      I386,
	"x86":      I386,
	"i686":     I386,
	"arm64":    AArch64,
	"armv7":    ARM,
	"armhf":    ARM,
	"mipsle":   MIPSEL,
	"mips64le": MIPS64EL,
	"loong64":  LoongArch64,
	"s390":     S390X,
}

// Entry returns the registry entry for a.
func (a Arch) Entry() Entry {
	if a == Unknown || a >= numArchs {
		return Entry{Name: "unknown"}
	}
	return entries[a]
}

func (a Arch) String() string { return a.Entry().Name }

// Syscall returns the memfd_create number for a (0 for Unknown).
func (a Arch) Syscall() uint64 { return a.Entry().Syscall }

// Aliases returns the alternative names accepted for a, sorted.
func (a Arch) Aliases() []string {
	var out []string
	for alias, target := range aliases {
		if target == a {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// All returns every registry entry in declaration order.
func All() []Arch {
	out := make([]Arch, 0, numArchs-1)
	for a := Unknown + 1; a < numArchs; a++ {
		out = append(out, a)
	}
	return out
}

// Names returns canonical names and aliases, sorted.
func Names() []string {
	names := make([]string, 0, int(numArchs)+len(aliases))
	for _, a := range All() {
		names = append(names, a.String())
	}
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// Parse looks an architecture up by canonical name or alias.
func Parse(name string) (Arch, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, a := range All() {
		if entries[a].Name == key {
			return a, nil
		}
	}
	if a, ok := aliases[key]; ok {
		return a, nil
	}
	return Unknown, diag.New(diag.ArchUnknown, "unknown architecture %q", name).
		WithHint("run `fee arch` for the list of known names, or pass --syscall")
}
