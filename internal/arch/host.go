package arch

// goarchNames maps GOARCH values to registry entries.
var goarchNames = map[string]Arch{
	"386":      I386,
	"amd64":    X86_64,
	"arm":      ARM,
	"arm64":    AArch64,
	"loong64":  LoongArch64,
	"mips":     MIPS,
	"mipsle":   MIPSEL,
	"mips64":   MIPS64,
	"mips64le": MIPS64EL,
	"ppc64":    PPC64,
	"ppc64le":  PPC64LE,
	"riscv64":  RISCV64,
	"s390x":    S390X,
	"sparc64":  SPARC64,
}

// ForGOARCH returns the entry matching a Go GOARCH value.
func ForGOARCH(goarch string) (Arch, bool) {
	a, ok := goarchNames[goarch]
	return a, ok
}
