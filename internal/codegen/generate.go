// Package codegen emits loader programs that recreate a binary in a memfd
// and exec it. Every runtime follows the same sequence: obtain the
// compressed payload (embedded literal or stdin), inflate it, create the
// memfd, write all bytes, exec /proc/self/fd/N with the requested argv.
package codegen

import (
	"fmt"
	"strings"

	"fee/internal/arch"
	"fee/internal/diag"
	"fee/internal/payload"
)

// mfdCloexec is MFD_CLOEXEC; the kernel resolves the exec path before the
// descriptor is closed.
const mfdCloexec = 1

// Request is everything a single generation needs.
type Request struct {
	Syscall     arch.Resolved
	Payload     payload.Encoded
	Runtime     Runtime
	Argv        []string
	Interpreter string
	// Command wraps the program in an `interpreter -c '...'` invocation.
	Command bool
}

// plan is the runtime-independent view an emitter works from.
type plan struct {
	number   uint64
	deferred bool
	stdin    bool
	lines    []string
	argv     []string
}

type emitFunc func(e *emitter, p *plan)

type emitter struct {
	sb strings.Builder
}

func (e *emitter) line(s string) {
	e.sb.WriteString(s)
	e.sb.WriteByte('\n')
}

func (e *emitter) linef(format string, args ...any) {
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

// fragments writes one quoted literal per payload line, separated by sep
// at the end of every line but the last.
func (e *emitter) fragments(lines []string, quote func(string) string, sep string) {
	for i, l := range lines {
		if i < len(lines)-1 {
			e.line(quote(l) + sep)
		} else {
			e.line(quote(l))
		}
	}
}

// Check validates req against the runtime's capabilities without emitting.
func Check(req *Request) error {
	if req == nil {
		return diag.New(diag.OptInvalid, "missing generation request")
	}
	info := req.Runtime.info()
	if info == nil {
		return diag.New(diag.GenUnknownRuntime, "unknown runtime %d", req.Runtime)
	}
	if len(req.Argv) == 0 {
		return diag.New(diag.OptInvalid, "argv must contain at least the program name")
	}
	if req.Syscall.IsDeferred() {
		if !info.caps.Libraries {
			return diag.New(diag.GenUnsupportedFeature, "%s cannot look up memfd_create in libc", info.name).
				WithHint("pass --arch or --syscall instead of --lookup")
		}
	} else if !info.caps.RawSyscall {
		return diag.New(diag.GenUnsupportedFeature, "%s cannot invoke raw syscalls", info.name).
			WithHint("use --lookup if the runtime can call libc")
	}
	switch req.Payload.Source {
	case payload.Stdin:
		if !info.caps.Stdin {
			return diag.New(diag.GenUnsupportedFeature, "%s cannot read the payload from stdin", info.name)
		}
	case payload.Embedded:
		if req.Payload.Text == "" {
			return diag.New(diag.OptInvalid, "embedded payload is empty")
		}
	}
	return nil
}

// Generate returns the loader program for req. On error nothing is returned.
func Generate(req *Request) (string, error) {
	if err := Check(req); err != nil {
		return "", err
	}
	info := req.Runtime.info()
	n, _ := req.Syscall.Number()
	p := &plan{
		number:   n,
		deferred: req.Syscall.IsDeferred(),
		stdin:    req.Payload.Source == payload.Stdin,
		lines:    req.Payload.Lines(),
		argv:     req.Argv,
	}
	var e emitter
	info.emit(&e, p)
	src := e.sb.String()
	if req.Command {
		return Wrap(src, req.Runtime, req.Interpreter), nil
	}
	return src, nil
}
