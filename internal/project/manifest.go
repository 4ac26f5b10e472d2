package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"fee/internal/arch"
	"fee/internal/codegen"
	"fee/internal/payload"
)

// Manifest is a parsed fee.toml.
type Manifest struct {
	Path     string
	Root     string
	Defaults Settings
	Targets  []Target
}

// Target is one [[target]] entry. Paths are absolute after Load.
type Target struct {
	Name     string
	Path     string
	Output   string
	Argv     []string
	Arch     string
	Syscall  uint64
	Lookup   bool
	Stdin    bool
	Settings Settings

	hasSyscall bool
}

type manifestFile struct {
	Defaults settingsTOML `toml:"defaults"`
	Target   []targetTOML `toml:"target"`
}

type settingsTOML struct {
	Runtime     string `toml:"runtime"`
	Interpreter string `toml:"interpreter"`
	Level       int    `toml:"level"`
	Wrap        int    `toml:"wrap"`
	Command     bool   `toml:"command"`
	Cache       bool   `toml:"cache"`
}

type targetTOML struct {
	settingsTOML
	Name    string   `toml:"name"`
	Path    string   `toml:"path"`
	Output  string   `toml:"output"`
	Argv    []string `toml:"argv"`
	Arch    string   `toml:"arch"`
	Syscall *uint64  `toml:"syscall"`
	Lookup  bool     `toml:"lookup"`
	Stdin   bool     `toml:"stdin"`
}

// Mode returns how the target's syscall number is resolved.
func (t *Target) Mode() arch.Mode {
	switch {
	case t.Lookup:
		return arch.RuntimeLookup()
	case t.hasSyscall:
		return arch.Explicit(t.Syscall)
	case t.Arch != "":
		return arch.ByName(t.Arch)
	default:
		return arch.Detection()
	}
}

// Load finds and parses the manifest above startDir. ok is false when
// there is none.
func Load(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err = LoadFile(path)
	return m, true, err
}

// LoadFile parses and validates the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	m := &Manifest{Path: abs, Root: filepath.Dir(abs)}

	if meta.IsDefined("defaults") {
		m.Defaults, err = settingsFrom(meta, cfg.Defaults, "defaults")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	seen := make(map[string]struct{}, len(cfg.Target))
	for i := range cfg.Target {
		raw := &cfg.Target[i]
		t, err := m.target(meta, raw, i)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate target name %q", path, t.Name)
		}
		seen[t.Name] = struct{}{}
		m.Targets = append(m.Targets, t)
	}
	return m, nil
}

func (m *Manifest) target(meta toml.MetaData, raw *targetTOML, index int) (Target, error) {
	t := Target{
		Name:   strings.TrimSpace(raw.Name),
		Argv:   raw.Argv,
		Arch:   strings.TrimSpace(raw.Arch),
		Lookup: raw.Lookup,
		Stdin:  raw.Stdin,
	}
	if t.Name == "" {
		return Target{}, fmt.Errorf("[[target]] #%d: missing name", index+1)
	}
	if raw.Path == "" && !t.Stdin {
		return Target{}, fmt.Errorf("target %q: missing path", t.Name)
	}
	if raw.Path != "" {
		t.Path = m.resolve(raw.Path)
	}
	if raw.Output != "" {
		t.Output = m.resolve(raw.Output)
	}
	// syscall = 0 is an explicit number, so presence decides the mode.
	t.hasSyscall = raw.Syscall != nil

	modes := 0
	for _, on := range []bool{t.Lookup, t.hasSyscall, t.Arch != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return Target{}, fmt.Errorf("target %q: arch, syscall and lookup are mutually exclusive", t.Name)
	}
	if t.Arch != "" {
		if _, err := arch.Parse(t.Arch); err != nil {
			return Target{}, fmt.Errorf("target %q: %w", t.Name, err)
		}
	}
	if t.hasSyscall {
		t.Syscall = *raw.Syscall
	}

	s, err := settingsFrom(meta, raw.settingsTOML, "")
	if err != nil {
		return Target{}, fmt.Errorf("target %q: %w", t.Name, err)
	}
	// Array table entries have no per-index MetaData keys, so only
	// non-zero values override the defaults.
	if s.Runtime != "" {
		s.Mark(FieldRuntime)
	}
	if s.Interpreter != "" {
		s.Mark(FieldInterpreter)
	}
	if raw.Level != 0 {
		s.Mark(FieldLevel)
	}
	if raw.Wrap != 0 {
		s.Mark(FieldWrap)
	}
	if raw.Command {
		s.Mark(FieldCommand)
	}
	if raw.Cache {
		s.Mark(FieldCache)
	}
	t.Settings = s
	return t, nil
}

// settingsFrom validates raw values and marks the keys defined under
// table. An empty table skips the IsDefined checks.
func settingsFrom(meta toml.MetaData, raw settingsTOML, table string) (Settings, error) {
	s := Settings{
		Runtime:     strings.TrimSpace(raw.Runtime),
		Interpreter: raw.Interpreter,
		Level:       raw.Level,
		Wrap:        raw.Wrap,
		Command:     raw.Command,
		Cache:       raw.Cache,
	}
	if s.Runtime != "" {
		if _, err := codegen.ParseRuntime(s.Runtime); err != nil {
			return Settings{}, err
		}
	}
	if err := payload.CheckOptions(s.Level, s.Wrap); err != nil {
		return Settings{}, err
	}
	if table == "" {
		return s, nil
	}
	keys := []struct {
		key   string
		field Field
	}{
		{"runtime", FieldRuntime},
		{"interpreter", FieldInterpreter},
		{"level", FieldLevel},
		{"wrap", FieldWrap},
		{"command", FieldCommand},
		{"cache", FieldCache},
	}
	for _, k := range keys {
		if meta.IsDefined(table, k.key) {
			s.Mark(k.field)
		}
	}
	return s, nil
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

// Target returns the named target.
func (m *Manifest) Target(name string) (*Target, bool) {
	for i := range m.Targets {
		if m.Targets[i].Name == name {
			return &m.Targets[i], true
		}
	}
	return nil, false
}

// Starter is the fee.toml written by `fee init`.
func Starter(name string) string {
	if name == "" {
		name = "app"
	}
	return fmt.Sprintf(`# fee project manifest

[defaults]
runtime = "python"
level = 9
wrap = 0

[[target]]
name = %q
path = "bin/%s"
argv = [%q]
output = "out/%s.py"
`, name, name, name, name)
}

// WriteStarter creates fee.toml in dir. It refuses to overwrite.
func WriteStarter(dir, name string) (string, error) {
	path := filepath.Join(dir, ManifestName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(Starter(name)); err != nil {
		_ = f.Close() //nolint:errcheck
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, f.Close()
}
