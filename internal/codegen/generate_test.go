package codegen

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"fee/internal/arch"
	"fee/internal/diag"
	"fee/internal/payload"
)

func embedded(t *testing.T, data string, wrap int) payload.Encoded {
	t.Helper()
	enc, err := payload.Encode([]byte(data), 9, wrap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return enc
}

func staticX86(t *testing.T) arch.Resolved {
	t.Helper()
	res, err := arch.Resolve(arch.ByName("x86_64"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestGenerateEveryRuntime(t *testing.T) {
	enc := embedded(t, "\x7fELF fake binary body", 0)
	for _, rt := range Runtimes() {
		req := &Request{
			Syscall: staticX86(t),
			Payload: enc,
			Runtime: rt,
			Argv:    []string{"self", "-l"},
		}
		src, err := Generate(req)
		if err != nil {
			t.Fatalf("%s: %v", rt, err)
		}
		if !strings.Contains(src, enc.Text) {
			t.Fatalf("%s: payload text not embedded", rt)
		}
		if !strings.Contains(src, fmt.Sprintf("(%d, ", arch.X86_64.Syscall())) {
			t.Fatalf("%s: registry syscall number missing:\n%s", rt, src)
		}
		if !strings.Contains(src, "/proc/self/fd/") {
			t.Fatalf("%s: exec path missing", rt)
		}
		if !strings.Contains(src, "-l") {
			t.Fatalf("%s: argv missing", rt)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	enc := embedded(t, strings.Repeat("abc", 500), 40)
	for _, rt := range Runtimes() {
		req := Request{Syscall: staticX86(t), Payload: enc, Runtime: rt, Argv: []string{"a", "b c"}, Command: true}
		first, err := Generate(&req)
		if err != nil {
			t.Fatal(err)
		}
		again := req
		second, err := Generate(&again)
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Fatalf("%s: output differs between identical requests", rt)
		}
	}
}

func TestGenerateStdinSource(t *testing.T) {
	enc := embedded(t, "payload that must not appear", 0)
	want := map[Runtime]string{
		Python: "sys.stdin.read()",
		Perl:   "<STDIN>",
		Ruby:   "$stdin.read",
		PHP:    "stream_get_contents(STDIN)",
	}
	for _, rt := range Runtimes() {
		src, err := Generate(&Request{
			Syscall: staticX86(t),
			Payload: payload.FromStdin(0),
			Runtime: rt,
			Argv:    []string{"self", "-l"},
		})
		if err != nil {
			t.Fatalf("%s: %v", rt, err)
		}
		if !strings.Contains(src, want[rt]) {
			t.Fatalf("%s: stdin read missing:\n%s", rt, src)
		}
		if strings.Contains(src, enc.Text) {
			t.Fatalf("%s: stdin mode embedded payload text", rt)
		}
	}
}

func TestGenerateWrappedFragments(t *testing.T) {
	enc := embedded(t, strings.Repeat("0123456789", 200), 20)
	lines := enc.Lines()
	if len(lines) < 3 {
		t.Fatalf("expected several payload lines, got %d", len(lines))
	}
	src, err := Generate(&Request{Syscall: staticX86(t), Payload: enc, Runtime: Python, Argv: []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range lines {
		if !strings.Contains(src, "b'"+l+"'\n") {
			t.Fatalf("fragment %q not on its own line:\n%s", l, src)
		}
	}
}

func TestRuntimeLookup(t *testing.T) {
	enc := embedded(t, "x", 0)
	for _, rt := range Runtimes() {
		req := &Request{Syscall: arch.Deferred(), Payload: enc, Runtime: rt, Argv: []string{"x"}}
		src, err := Generate(req)
		if !rt.CanCallLibraries() {
			if !errors.Is(err, diag.ErrUnsupportedRuntimeFeature) {
				t.Fatalf("%s: expected UnsupportedRuntimeFeature, got %v", rt, err)
			}
			if src != "" {
				t.Fatalf("%s: output emitted despite error", rt)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", rt, err)
		}
		if !strings.Contains(src, "memfd_create") {
			t.Fatalf("%s: lookup does not reference memfd_create", rt)
		}
		if strings.Contains(src, "syscall") {
			t.Fatalf("%s: lookup still goes through syscall():\n%s", rt, src)
		}
	}
}

func TestPerlLacksLibraryCalls(t *testing.T) {
	if Perl.CanCallLibraries() {
		t.Fatal("perl must not advertise library calls")
	}
	_, err := arch.Resolve(arch.RuntimeLookup(), nil, Perl)
	if !errors.Is(err, diag.ErrUnsupportedRuntimeFeature) {
		t.Fatalf("expected UnsupportedRuntimeFeature, got %v", err)
	}
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	enc := embedded(t, "x", 0)
	cases := []struct {
		name string
		req  *Request
		want error
	}{
		{"nil", nil, diag.ErrInvalidOption},
		{"unknown runtime", &Request{Syscall: staticX86(t), Payload: enc, Argv: []string{"x"}}, diag.ErrUnknownRuntime},
		{"empty argv", &Request{Syscall: staticX86(t), Payload: enc, Runtime: Python}, diag.ErrInvalidOption},
		{"empty payload", &Request{Syscall: staticX86(t), Runtime: Python, Argv: []string{"x"}}, diag.ErrInvalidOption},
	}
	for _, tc := range cases {
		src, err := Generate(tc.req)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
		if src != "" {
			t.Fatalf("%s: output emitted despite error", tc.name)
		}
	}
}

func TestParseRuntime(t *testing.T) {
	for in, want := range map[string]Runtime{"python": Python, "PY": Python, "python2": Python, "perl": Perl, "rb": Ruby, "php": PHP} {
		got, err := ParseRuntime(in)
		if err != nil || got != want {
			t.Fatalf("ParseRuntime(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRuntime("node"); !errors.Is(err, diag.ErrUnknownRuntime) {
		t.Fatalf("expected UnknownRuntime, got %v", err)
	}
}

func TestExplicitNumberPassesThrough(t *testing.T) {
	src, err := Generate(&Request{Syscall: arch.Static(424242, arch.Unknown), Payload: embedded(t, "x", 0), Runtime: Perl, Argv: []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "syscall(424242, $n, 1)") {
		t.Fatalf("explicit number not used:\n%s", src)
	}
}

func TestMissingCapabilitiesFailBeforeOutput(t *testing.T) {
	saved := runtimes[Ruby]
	t.Cleanup(func() { runtimes[Ruby] = saved })
	runtimes[Ruby].caps = Capabilities{Libraries: true}

	cases := []struct {
		name string
		req  *Request
	}{
		{"raw syscall", &Request{Syscall: staticX86(t), Payload: embedded(t, "x", 0), Runtime: Ruby, Argv: []string{"x"}}},
		{"stdin", &Request{Syscall: arch.Deferred(), Payload: payload.FromStdin(0), Runtime: Ruby, Argv: []string{"x"}}},
	}
	for _, tc := range cases {
		src, err := Generate(tc.req)
		if !errors.Is(err, diag.ErrUnsupportedRuntimeFeature) {
			t.Fatalf("%s: got %v, want UnsupportedRuntimeFeature", tc.name, err)
		}
		if src != "" {
			t.Fatalf("%s: output emitted despite error", tc.name)
		}
	}
}
