package codegen

import (
	"strings"

	"fee/internal/diag"
)

// Runtime selects the language the loader is written in.
type Runtime uint8

const (
	RuntimeUnknown Runtime = iota
	Python
	Perl
	Ruby
	PHP

	numRuntimes
)

// Capabilities lists what a runtime can do without third-party packages.
type Capabilities struct {
	// RawSyscall: can invoke a syscall by number.
	RawSyscall bool
	// Libraries: can resolve and call a libc symbol by name.
	Libraries bool
	// Stdin: can read the payload from standard input.
	Stdin bool
}

type runtimeInfo struct {
	name        string
	aliases     []string
	caps        Capabilities
	interpreter string
	inlineFlag  string
	// opener is stripped for inline execution.
	opener string
	emit   emitFunc
}

var runtimes = [numRuntimes]runtimeInfo{
	Python: {
		name:        "python",
		aliases:     []string{"py", "python2", "python3"},
		caps:        Capabilities{RawSyscall: true, Libraries: true, Stdin: true},
		interpreter: "/usr/bin/env python3",
		inlineFlag:  "-c",
		emit:        emitPython,
	},
	Perl: {
		name:        "perl",
		aliases:     []string{"pl", "perl5"},
		caps:        Capabilities{RawSyscall: true, Stdin: true},
		interpreter: "/usr/bin/env perl",
		inlineFlag:  "-e",
		emit:        emitPerl,
	},
	Ruby: {
		name:        "ruby",
		aliases:     []string{"rb"},
		caps:        Capabilities{RawSyscall: true, Libraries: true, Stdin: true},
		interpreter: "/usr/bin/env ruby",
		inlineFlag:  "-e",
		emit:        emitRuby,
	},
	PHP: {
		name:        "php",
		caps:        Capabilities{RawSyscall: true, Libraries: true, Stdin: true},
		interpreter: "/usr/bin/env php",
		inlineFlag:  "-r",
		opener:      "<?php\n",
		emit:        emitPHP,
	},
}

// Runtimes returns every supported runtime in declaration order.
func Runtimes() []Runtime {
	out := make([]Runtime, 0, numRuntimes-1)
	for r := RuntimeUnknown + 1; r < numRuntimes; r++ {
		out = append(out, r)
	}
	return out
}

// ParseRuntime resolves a runtime by name or alias.
func ParseRuntime(name string) (Runtime, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, r := range Runtimes() {
		info := &runtimes[r]
		if info.name == key {
			return r, nil
		}
		for _, alias := range info.aliases {
			if alias == key {
				return r, nil
			}
		}
	}
	return RuntimeUnknown, diag.New(diag.GenUnknownRuntime, "unknown runtime %q", name).
		WithHint("run `fee runtimes` for the supported list")
}

func (r Runtime) info() *runtimeInfo {
	if r == RuntimeUnknown || r >= numRuntimes {
		return nil
	}
	return &runtimes[r]
}

// Valid reports whether r names a supported runtime.
func (r Runtime) Valid() bool { return r.info() != nil }

func (r Runtime) String() string {
	if info := r.info(); info != nil {
		return info.name
	}
	return "unknown"
}

// Capabilities returns what r supports.
func (r Runtime) Capabilities() Capabilities {
	if info := r.info(); info != nil {
		return info.caps
	}
	return Capabilities{}
}

// CanCallLibraries reports whether r can resolve memfd_create in libc.
func (r Runtime) CanCallLibraries() bool { return r.Capabilities().Libraries }

// DefaultInterpreter is the command used when wrapping without an explicit path.
func (r Runtime) DefaultInterpreter() string {
	if info := r.info(); info != nil {
		return info.interpreter
	}
	return ""
}

// InlineFlag is the interpreter flag taking a program as an argument.
func (r Runtime) InlineFlag() string {
	if info := r.info(); info != nil {
		return info.inlineFlag
	}
	return ""
}
