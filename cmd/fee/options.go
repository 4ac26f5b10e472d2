package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fee/internal/arch"
	"fee/internal/codegen"
	"fee/internal/diag"
	"fee/internal/payload"
	"fee/internal/project"
)

// addSettingsFlags registers the flags that map onto project.Settings.
func addSettingsFlags(cmd *cobra.Command, withRuntime bool) {
	if withRuntime {
		cmd.Flags().StringP("runtime", "r", "python", "target runtime (python|perl|ruby|php)")
		cmd.Flags().StringP("interpreter", "p", "", "interpreter used with --command (default: /usr/bin/env <runtime>)")
		cmd.Flags().BoolP("command", "c", false, "wrap the program in an `interpreter -c '...'` shell command")
	}
	cmd.Flags().IntP("level", "z", 9, "zlib compression level (0-9)")
	cmd.Flags().IntP("wrap", "w", 0, "wrap base64 text every N characters (0: no wrapping)")
	cmd.Flags().Bool("cache", false, "reuse encoded payloads from the on-disk cache")
}

// flagSettings returns the settings given explicitly on the command line.
func flagSettings(cmd *cobra.Command) (project.Settings, error) {
	var s project.Settings
	flags := cmd.Flags()
	var err error
	if flags.Lookup("runtime") != nil && flags.Changed("runtime") {
		if s.Runtime, err = flags.GetString("runtime"); err != nil {
			return s, err
		}
		s.Mark(project.FieldRuntime)
	}
	if flags.Lookup("interpreter") != nil && flags.Changed("interpreter") {
		if s.Interpreter, err = flags.GetString("interpreter"); err != nil {
			return s, err
		}
		s.Mark(project.FieldInterpreter)
	}
	if flags.Lookup("command") != nil && flags.Changed("command") {
		if s.Command, err = flags.GetBool("command"); err != nil {
			return s, err
		}
		s.Mark(project.FieldCommand)
	}
	if flags.Changed("level") {
		if s.Level, err = flags.GetInt("level"); err != nil {
			return s, err
		}
		s.Mark(project.FieldLevel)
	}
	if flags.Changed("wrap") {
		if s.Wrap, err = flags.GetInt("wrap"); err != nil {
			return s, err
		}
		s.Mark(project.FieldWrap)
	}
	if flags.Changed("cache") {
		if s.Cache, err = flags.GetBool("cache"); err != nil {
			return s, err
		}
		s.Mark(project.FieldCache)
	}
	return s, nil
}

// loadSettings merges built-in defaults, the manifest's [defaults], the
// environment and the command line, in increasing precedence.
func loadSettings(cmd *cobra.Command) (project.Settings, *project.Manifest, error) {
	settings := project.Builtin()
	manifest, ok, err := project.Load(".")
	if err != nil {
		return settings, nil, err
	}
	if ok {
		settings = settings.Overlay(manifest.Defaults)
	}
	envs, err := project.FromEnv()
	if err != nil {
		return settings, manifest, err
	}
	settings = settings.Overlay(envs)
	flags, err := flagSettings(cmd)
	if err != nil {
		return settings, manifest, err
	}
	settings = settings.Overlay(flags)
	if err := payload.CheckOptions(settings.Level, settings.Wrap); err != nil {
		return settings, manifest, err
	}
	return settings, manifest, nil
}

// splitArgsAtDash separates positional arguments from those after `--`.
func splitArgsAtDash(cmd *cobra.Command, args []string) (before, after []string) {
	n := cmd.ArgsLenAtDash()
	if n < 0 {
		return args, nil
	}
	return args[:n], args[n:]
}

// resolveArgv picks the argv for the loaded program. Arguments after `--`
// win over --argv, which wins over the input path.
func resolveArgv(path, argvFlag string, afterDash []string) ([]string, error) {
	if len(afterDash) > 0 {
		return afterDash, nil
	}
	if strings.TrimSpace(argvFlag) != "" {
		return strings.Fields(argvFlag), nil
	}
	if path != "" && path != "-" {
		return []string{path}, nil
	}
	return nil, diag.New(diag.OptInvalid, "argv is required when there is no input file").
		WithHint("pass --argv 'name args...' or arguments after --")
}

// resolveMode turns --arch, --syscall and --lookup into a resolution mode.
func resolveMode(cmd *cobra.Command) (arch.Mode, error) {
	flags := cmd.Flags()
	lookup, err := flags.GetBool("lookup")
	if err != nil {
		return arch.Mode{}, err
	}
	if lookup {
		return arch.RuntimeLookup(), nil
	}
	if flags.Changed("syscall") {
		n, err := flags.GetUint64("syscall")
		if err != nil {
			return arch.Mode{}, err
		}
		return arch.Explicit(n), nil
	}
	name, err := flags.GetString("arch")
	if err != nil {
		return arch.Mode{}, err
	}
	if name != "" {
		return arch.ByName(name), nil
	}
	return arch.Detection(), nil
}

// addModeFlags registers --arch, --syscall and --lookup.
func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("arch", "a", "", "target architecture name (see `fee arch`)")
	cmd.Flags().Uint64P("syscall", "s", 0, "memfd_create syscall number for the target")
	cmd.Flags().Bool("lookup", false, "resolve memfd_create through libc at run time")
	cmd.MarkFlagsMutuallyExclusive("arch", "syscall", "lookup")
}

// openCache opens the payload cache when enabled. Failing to open it only
// disables caching.
func openCache(cmd *cobra.Command, enabled bool) *payload.Cache {
	if !enabled {
		return nil
	}
	c, err := payload.OpenCache(appName)
	if err != nil {
		warn(cmd, "payload cache disabled: %v", err)
		return nil
	}
	return c
}

// outputExt is the file extension for programs written by `fee build`.
func outputExt(r codegen.Runtime, command bool) string {
	if command {
		return ".sh"
	}
	switch r {
	case codegen.Python:
		return ".py"
	case codegen.Perl:
		return ".pl"
	case codegen.Ruby:
		return ".rb"
	case codegen.PHP:
		return ".php"
	}
	return fmt.Sprintf(".%s", r)
}
