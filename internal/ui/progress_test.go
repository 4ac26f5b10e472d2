package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"fee/internal/pipeline"
)

func TestApplyEventTracksTargets(t *testing.T) {
	m := NewProgressModel("build", []string{"py", "pl"}, nil).(*progressModel)

	m.applyEvent(pipeline.Event{Target: "py", Stage: pipeline.StageEncode, Status: pipeline.StatusWorking})
	if m.items[0].status != "encoding" {
		t.Fatalf("status = %q, want encoding", m.items[0].status)
	}
	m.applyEvent(pipeline.Event{Target: "py", Stage: pipeline.StageEncode, Status: pipeline.StatusDone})
	if m.items[0].status != "encoding" || m.items[0].finished {
		t.Fatalf("stage completion must not finish the target")
	}
	m.applyEvent(pipeline.Event{Target: "py", Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{Target: "pl", Status: pipeline.StatusError, Err: errors.New("GEN3001 no libc")})
	m.applyEvent(pipeline.Event{Target: "unknown", Status: pipeline.StatusDone})

	if !m.items[0].finished || m.items[0].status != "done" {
		t.Fatalf("py not finished: %+v", m.items[0])
	}
	if m.items[1].status != "error" || m.items[1].detail != "GEN3001 no libc" {
		t.Fatalf("pl error not recorded: %+v", m.items[1])
	}
	if got := m.percent(); got != 1.0 {
		t.Fatalf("percent = %v, want 1", got)
	}

	view := m.View()
	if !strings.Contains(view, "[2/2]") || !strings.Contains(view, "GEN3001") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
	long := truncate("a-very-long-target-name", 10)
	if !strings.HasSuffix(long, "...") || runewidth.StringWidth(long) > 10 {
		t.Fatalf("long name not truncated: %q", long)
	}
}
