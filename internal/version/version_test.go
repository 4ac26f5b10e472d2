package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if strings.Contains(Version, "\x1b[") {
		t.Errorf("Version must stay plain for JSON output, got %q", Version)
	}
}

func TestPretty(t *testing.T) {
	orig := Version
	origNoColor := color.NoColor
	t.Cleanup(func() {
		Version = orig
		color.NoColor = origNoColor
	})

	color.NoColor = true
	Version = "1.2.3-rc1"
	if got := Pretty(); got != "1.2.3-rc1" {
		t.Errorf("Pretty() = %q, want %q", got, "1.2.3-rc1")
	}

	color.NoColor = false
	if got := Pretty(); !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc1") {
		t.Errorf("Pretty() = %q, want colored digits", got)
	}

	Version = "nightly"
	if got := Pretty(); got != "nightly" {
		t.Errorf("Pretty() = %q, want untouched non-semver version", got)
	}
}

func TestCommitPrefersLdflags(t *testing.T) {
	orig := GitCommit
	t.Cleanup(func() { GitCommit = orig })

	GitCommit = "abc123def456"
	if got := Commit(); got != "abc123def456" {
		t.Errorf("Commit() = %q, want %q", got, "abc123def456")
	}
}
