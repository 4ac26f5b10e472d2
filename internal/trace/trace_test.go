package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"", LevelOff, true},
		{"off", LevelOff, true},
		{"ERROR", LevelError, true},
		{" phase ", LevelPhase, true},
		{"detail", LevelDetail, true},
		{"debug", LevelDebug, true},
		{"loud", LevelOff, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPhaseLevelSkipsTargets(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopeStage) {
		t.Fatalf("phase level must emit stages")
	}
	if LevelPhase.ShouldEmit(ScopeTarget) {
		t.Fatalf("phase level must not emit targets")
	}
	if LevelOff.ShouldEmit(ScopeDriver) {
		t.Fatalf("off level emitted")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)

	root := Begin(tr, ScopeDriver, "generate", 0)
	child := Begin(tr, ScopeStage, "encode", root.ID())
	child.WithExtra("bytes", "42").End("")
	root.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Kind     string            `json:"kind"`
		Scope    string            `json:"scope"`
		Name     string            `json:"name"`
		ParentID uint64            `json:"parent_id"`
		Extra    map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != "end" || ev.Scope != "stage" || ev.Name != "encode" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.ParentID != root.ID() || ev.Extra["bytes"] != "42" {
		t.Fatalf("unexpected parent/extra %+v", ev)
	}
}

func TestTextFormatSortsExtra(t *testing.T) {
	ev := &Event{Kind: KindPoint, Scope: ScopeTarget, Name: "cache", Extra: map[string]string{"b": "2", "a": "1"}}
	got := string(FormatEvent(ev, FormatText))
	if !strings.Contains(got, "• cache {a=1, b=2}") {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestRingWrapsInOrder(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeStage, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Fatalf("snapshot[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("unexpected dump %q", buf.String())
	}
}

func TestNewModes(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("off level must yield Nop, got %v, %v", tr, err)
	}
	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeDriver, "build", 0).End("")
	if len(Rings(tr)) != 1 {
		t.Fatalf("expected one ring behind the multi tracer")
	}
	if Rings(tr)[0].Snapshot()[0].Name != "build" || !strings.Contains(buf.String(), "build") {
		t.Fatalf("event did not reach both tracers")
	}
}

func TestContextPropagation(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop || CurrentSpan(ctx) != 0 {
		t.Fatalf("empty context must carry nothing")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx = WithTracer(ctx, r)
	span := Begin(FromContext(ctx), ScopeDriver, "run", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatalf("span id not propagated")
	}
}

func TestErrorLevelNeverStreams(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelError, Mode: ModeStream, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeStage, "encode", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("error level streamed %q", buf.String())
	}
	if rings := Rings(tr); len(rings) != 1 || len(rings[0].Snapshot()) != 2 {
		t.Fatalf("error level must keep events in a ring")
	}
}
