package pipeline

import (
	"bytes"
	"context"
	"debug/elf"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fee/internal/arch"
	"fee/internal/codegen"
	"fee/internal/diag"
	"fee/internal/elfhdr"
	"fee/internal/payload"
	"fee/internal/trace"
)

func x8664Header() []byte {
	return elfhdr.Synthesize(elfhdr.Classification{
		Class:   elf.ELFCLASS64,
		Data:    elf.ELFDATA2LSB,
		Machine: elf.EM_X86_64,
	})
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) has(target string, stage Stage, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Target == target && e.Stage == stage && e.Status == status {
			return true
		}
	}
	return false
}

func TestRunDetectsAndGenerates(t *testing.T) {
	data := x8664Header()
	res, err := Run(context.Background(), &Request{
		Name:    "tool",
		Data:    data,
		Mode:    arch.Detection(),
		Runtime: codegen.Python,
		Argv:    []string{"tool"},
		Level:   9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Classification == nil || res.Classification.Machine != elf.EM_X86_64 {
		t.Fatalf("unexpected classification %v", res.Classification)
	}
	if n, ok := res.Syscall.Number(); !ok || n != 319 || res.Syscall.Arch() != arch.X86_64 {
		t.Fatalf("unexpected syscall %v", res.Syscall)
	}
	if !strings.Contains(res.Source, "s(319, b'', 1)") {
		t.Fatalf("source does not call syscall 319:\n%s", res.Source)
	}
	back, err := payload.Decode(res.Payload.Text)
	if err != nil || !bytes.Equal(back, data) {
		t.Fatalf("payload does not round trip: %v", err)
	}
	for _, stage := range []Stage{StageClassify, StageResolve, StageEncode, StageGenerate} {
		if !res.Timings.Has(stage) {
			t.Fatalf("missing timing for %s", stage)
		}
	}
	if res.Timings.Has(StageRead) {
		t.Fatalf("read stage recorded although data was supplied")
	}
}

func TestRunReadsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, x8664Header(), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), &Request{
		Path:    path,
		Mode:    arch.ByName("x86_64"),
		Runtime: codegen.Ruby,
		Argv:    []string{"tool"},
		Level:   6,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Timings.Has(StageRead) {
		t.Fatalf("read stage not timed")
	}
	if res.Classification != nil {
		t.Fatalf("name lookup must not classify")
	}
}

func TestRunStdinNeedsNoFile(t *testing.T) {
	res, err := Run(context.Background(), &Request{
		Stdin:   true,
		Mode:    arch.ByName("aarch64"),
		Runtime: codegen.Perl,
		Argv:    []string{"self", "-l"},
		Level:   9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Payload.Source != payload.Stdin || res.Payload.Text != "" {
		t.Fatalf("expected stdin payload, got %+v", res.Payload)
	}
	if !strings.Contains(res.Source, "279") {
		t.Fatalf("source does not use the aarch64 number:\n%s", res.Source)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "stdin detection without file",
			req:  Request{Stdin: true, Mode: arch.Detection(), Runtime: codegen.Python, Argv: []string{"x"}},
			want: diag.ErrMissingElfData,
		},
		{
			name: "malformed header",
			req:  Request{Data: []byte("not an elf"), Mode: arch.Detection(), Runtime: codegen.Python, Argv: []string{"x"}},
			want: diag.ErrMalformedInput,
		},
		{
			name: "perl lookup",
			req:  Request{Data: x8664Header(), Mode: arch.RuntimeLookup(), Runtime: codegen.Perl, Argv: []string{"x"}},
			want: diag.ErrUnsupportedRuntimeFeature,
		},
		{
			name: "unknown arch name",
			req:  Request{Data: x8664Header(), Mode: arch.ByName("vax"), Runtime: codegen.PHP, Argv: []string{"x"}},
			want: diag.ErrUnknownArchitecture,
		},
		{
			name: "bad level",
			req:  Request{Data: x8664Header(), Mode: arch.Explicit(1), Runtime: codegen.PHP, Argv: []string{"x"}, Level: 12},
			want: diag.ErrInvalidOption,
		},
		{
			name: "no input",
			req:  Request{Mode: arch.Explicit(1), Runtime: codegen.PHP, Argv: []string{"x"}},
			want: diag.ErrInvalidOption,
		},
		{
			name: "unknown runtime",
			req:  Request{Data: x8664Header(), Mode: arch.Explicit(1), Argv: []string{"x"}},
			want: diag.ErrUnknownRuntime,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(context.Background(), &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if res.Source != "" {
				t.Fatalf("failed run produced source")
			}
		})
	}
}

func TestRunReportsProgressAndTrace(t *testing.T) {
	rec := &recorder{}
	ring := trace.NewRingTracer(64, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	_, err := Run(ctx, &Request{
		Name:     "tool",
		Data:     x8664Header(),
		Mode:     arch.Detection(),
		Runtime:  codegen.PHP,
		Argv:     []string{"tool"},
		Progress: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, stage := range []Stage{StageClassify, StageResolve, StageEncode, StageGenerate} {
		if !rec.has("tool", stage, StatusDone) {
			t.Fatalf("no done event for %s", stage)
		}
	}
	names := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		names[ev.Name] = true
	}
	for _, stage := range []Stage{StageClassify, StageResolve, StageEncode, StageGenerate} {
		if !names[string(stage)] {
			t.Fatalf("no trace span for %s", stage)
		}
	}
}

func TestBuildWritesOnlySuccessfulTargets(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "out", "good.py")
	bad := filepath.Join(dir, "out", "bad.pl")
	targets := []Target{
		{
			Request: Request{Name: "good", Data: x8664Header(), Mode: arch.Detection(), Runtime: codegen.Python, Argv: []string{"good"}},
			Output:  good,
		},
		{
			Request: Request{Name: "bad", Data: x8664Header(), Mode: arch.RuntimeLookup(), Runtime: codegen.Perl, Argv: []string{"bad"}},
			Output:  bad,
		},
	}
	rec := &recorder{}
	results, err := Build(context.Background(), targets, 2, rec)
	if err == nil || !strings.Contains(err.Error(), "bad:") {
		t.Fatalf("expected joined error naming the bad target, got %v", err)
	}
	if !errors.Is(err, diag.ErrUnsupportedRuntimeFeature) {
		t.Fatalf("joined error lost its code: %v", err)
	}
	if results[0].Err != nil || results[1].Err == nil {
		t.Fatalf("unexpected per-target errors: %v / %v", results[0].Err, results[1].Err)
	}
	written, readErr := os.ReadFile(good)
	if readErr != nil || string(written) != results[0].Result.Source {
		t.Fatalf("good output not written: %v", readErr)
	}
	if _, statErr := os.Stat(bad); !os.IsNotExist(statErr) {
		t.Fatalf("failed target left output behind: %v", statErr)
	}
	if !rec.has("good", "", StatusDone) || !rec.has("bad", "", StatusError) {
		t.Fatalf("missing final target events")
	}
	if !rec.has("good", StageRead, StatusQueued) {
		t.Fatalf("missing queued event")
	}
}

func TestWriteOutputReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loader.rb")
	if err := WriteOutput(path, "first", OutputMode); err != nil {
		t.Fatal(err)
	}
	if err := WriteOutput(path, "second", OutputMode); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "second" {
		t.Fatalf("got %q, %v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestTimingsSum(t *testing.T) {
	var tm Timings
	if tm.Has(StageEncode) || tm.Sum(StageEncode) != 0 {
		t.Fatalf("zero timings must be empty")
	}
	tm.Set(StageEncode, 2)
	tm.Set(StageGenerate, 3)
	if tm.Sum(Stages...) != 5 {
		t.Fatalf("unexpected sum %v", tm.Sum(Stages...))
	}
}
