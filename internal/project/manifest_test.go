package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fee/internal/arch"
	"fee/internal/diag"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[defaults]
runtime = "ruby"
level = 0
wrap = 76

[[target]]
name = "detect"
path = "bin/tool"
argv = ["tool", "-v"]
output = "out/tool.rb"

[[target]]
name = "named"
path = "/opt/tool"
arch = "arm64"
runtime = "php"
command = true

[[target]]
name = "number"
stdin = true
syscall = 319

[[target]]
name = "lookup"
path = "bin/tool"
lookup = true
`)
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if m.Root != dir {
		t.Fatalf("root = %q, want %q", m.Root, dir)
	}
	if !m.Defaults.Has(FieldLevel) || m.Defaults.Level != 0 || m.Defaults.Runtime != "ruby" {
		t.Fatalf("unexpected defaults %+v", m.Defaults)
	}
	if m.Defaults.Has(FieldInterpreter) {
		t.Fatalf("interpreter marked although absent")
	}
	if len(m.Targets) != 4 {
		t.Fatalf("expected 4 targets, got %d", len(m.Targets))
	}

	detect, _ := m.Target("detect")
	if detect.Path != filepath.Join(dir, "bin", "tool") || detect.Output != filepath.Join(dir, "out", "tool.rb") {
		t.Fatalf("paths not resolved: %+v", detect)
	}
	if detect.Mode().Kind != arch.ModeDetect {
		t.Fatalf("expected detection, got %v", detect.Mode())
	}

	named, _ := m.Target("named")
	if named.Path != "/opt/tool" || named.Mode() != arch.ByName("arm64") {
		t.Fatalf("unexpected named target %+v", named)
	}
	if !named.Settings.Has(FieldRuntime) || !named.Settings.Has(FieldCommand) || named.Settings.Has(FieldLevel) {
		t.Fatalf("unexpected target settings %+v", named.Settings)
	}

	number, _ := m.Target("number")
	if number.Mode() != arch.Explicit(319) || !number.Stdin {
		t.Fatalf("unexpected number target %+v", number)
	}

	lookup, _ := m.Target("lookup")
	if lookup.Mode().Kind != arch.ModeLookup {
		t.Fatalf("expected lookup mode")
	}
	if _, ok := m.Target("missing"); ok {
		t.Fatalf("found a target that does not exist")
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[defaults\n", "failed to parse TOML"},
		{"unknown key", "[defaults]\ncolour = true\n", "unknown key"},
		{"missing name", "[[target]]\npath = \"x\"\n", "missing name"},
		{"missing path", "[[target]]\nname = \"a\"\n", "missing path"},
		{"duplicate", "[[target]]\nname = \"a\"\npath = \"x\"\n[[target]]\nname = \"a\"\npath = \"y\"\n", "duplicate target"},
		{"exclusive", "[[target]]\nname = \"a\"\npath = \"x\"\narch = \"arm\"\nlookup = true\n", "mutually exclusive"},
		{"bad arch", "[[target]]\nname = \"a\"\npath = \"x\"\narch = \"vax\"\n", "ARC2001"},
		{"bad runtime", "[defaults]\nruntime = \"lua\"\n", "GEN3002"},
		{"bad level", "[defaults]\nlevel = 11\n", "OPT4001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[defaults]\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindProjectRoot(nested)
	if err != nil || !ok || got != root {
		t.Fatalf("FindProjectRoot = %q, %v, %v", got, ok, err)
	}
	m, ok, err := Load(nested)
	if err != nil || !ok || m.Path != filepath.Join(root, ManifestName) {
		t.Fatalf("Load = %+v, %v, %v", m, ok, err)
	}
}

func TestFindManifestNone(t *testing.T) {
	// A fresh temp dir may still sit below a fee.toml on the host; only
	// check that the lookup does not fail.
	if _, _, err := FindManifest(t.TempDir()); err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
}

func TestWriteStarter(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteStarter(dir, "probe")
	if err != nil {
		t.Fatalf("WriteStarter: %v", err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("starter does not load: %v", err)
	}
	probe, ok := m.Target("probe")
	if !ok || probe.Output != filepath.Join(dir, "out", "probe.py") {
		t.Fatalf("unexpected starter target %+v", probe)
	}
	if _, err := WriteStarter(dir, "probe"); !errors.Is(err, os.ErrExist) {
		t.Fatalf("second WriteStarter should refuse to overwrite, got %v", err)
	}
}

func TestSettingsOverlay(t *testing.T) {
	manifest := Settings{Runtime: "ruby", Wrap: 60}
	manifest.Mark(FieldRuntime)
	manifest.Mark(FieldWrap)

	envs := Settings{Runtime: "perl", Level: 3}
	envs.Mark(FieldRuntime)
	envs.Mark(FieldLevel)

	flags := Settings{Level: 1}
	flags.Mark(FieldLevel)

	got := Builtin().Overlay(manifest).Overlay(envs).Overlay(flags)
	if got.Runtime != "perl" || got.Level != 1 || got.Wrap != 60 || got.Command {
		t.Fatalf("unexpected merged settings %+v", got)
	}

	zero := Builtin().Overlay(Settings{})
	if zero.Runtime != "python" || zero.Level != 9 {
		t.Fatalf("empty overlay changed defaults: %+v", zero)
	}
}

func TestFromEnvIgnoresUnset(t *testing.T) {
	for _, name := range []string{EnvRuntime, EnvInterpreter, EnvLevel, EnvWrap, EnvCache} {
		if _, set := os.LookupEnv(name); set {
			t.Skipf("%s set in the test environment", name)
		}
	}
	s, err := FromEnv()
	if err != nil || s.set != 0 {
		t.Fatalf("unset environment marked fields: %+v, %v", s, err)
	}
}

func TestCodesInManifestErrors(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[defaults]\nwrap = -1\n")
	_, err := LoadFile(path)
	if !errors.Is(err, diag.ErrInvalidOption) {
		t.Fatalf("expected invalid option, got %v", err)
	}
}

func TestFromEnvRejectsNonNumeric(t *testing.T) {
	for _, name := range []string{EnvLevel, EnvWrap} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "high")
			if _, err := FromEnv(); !errors.Is(err, diag.ErrInvalidOption) {
				t.Fatalf("expected invalid option, got %v", err)
			}
		})
	}
}

func TestFromEnvReadsNumbers(t *testing.T) {
	t.Setenv(EnvLevel, " 3 ")
	t.Setenv(EnvWrap, "0")
	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.Level != 3 || !s.Has(FieldLevel) || s.Wrap != 0 || !s.Has(FieldWrap) {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestTargetSyscallZeroIsExplicit(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[[target]]\nname = \"a\"\npath = \"x\"\nsyscall = 0\n")
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	a, _ := m.Target("a")
	if a.Mode() != arch.Explicit(0) {
		t.Fatalf("syscall = 0 resolved as %v", a.Mode())
	}
	none := writeManifest(t, t.TempDir(), "[[target]]\nname = \"b\"\npath = \"x\"\n")
	m, err = LoadFile(none)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	b, _ := m.Target("b")
	if b.Mode().Kind != arch.ModeDetect {
		t.Fatalf("absent syscall must detect, got %v", b.Mode())
	}
}
