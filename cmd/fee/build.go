package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fee/internal/codegen"
	"fee/internal/diag"
	"fee/internal/payload"
	"fee/internal/pipeline"
	"fee/internal/project"
)

const noManifestMessage = "no fee.toml found\nrun `fee init` to create one, or use `fee generate` for a single file"

var buildCmd = &cobra.Command{
	Use:   "build [flags] [target...]",
	Short: "Generate every target declared in fee.toml",
	Long: `Generate the [[target]] entries of the nearest fee.toml concurrently.
Targets without an output path are written to out/<name>.<ext> under the
project root. Name targets to build only those.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntP("jobs", "j", 0, "targets generated concurrently (default: GOMAXPROCS)")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().StringP("manifest", "m", "", "path to fee.toml (default: search upwards)")
	buildCmd.Flags().Bool("cache", false, "reuse encoded payloads from the on-disk cache")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, span := beginDriver(cmd)
	defer span.End("")

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return err
	}

	var manifest *project.Manifest
	if manifestPath != "" {
		manifest, err = project.LoadFile(manifestPath)
	} else {
		var ok bool
		manifest, ok, err = project.Load(".")
		if err == nil && !ok {
			err = errors.New(noManifestMessage)
		}
	}
	if err != nil {
		return err
	}

	selected, err := selectTargets(manifest, args)
	if err != nil {
		return err
	}
	flags, err := flagSettings(cmd)
	if err != nil {
		return err
	}
	targets, err := buildTargets(cmd, manifest, selected, flags)
	if err != nil {
		return err
	}

	names := make([]string, len(targets))
	for i := range targets {
		names[i] = targets[i].Request.Name
	}

	var results []pipeline.TargetResult
	if shouldUseTUI(uiModeValue) && !quiet(cmd) {
		results, err = runBuildWithUI(ctx, "fee build", names, targets, jobs)
	} else {
		results, err = pipeline.Build(ctx, targets, jobs, nil)
	}
	span.WithExtra("targets", fmt.Sprint(len(targets)))

	printBuildResults(cmd, manifest.Root, results)
	return err
}

// selectTargets returns the named targets, or all of them when names is empty.
func selectTargets(m *project.Manifest, names []string) ([]*project.Target, error) {
	if len(names) == 0 {
		out := make([]*project.Target, len(m.Targets))
		for i := range m.Targets {
			out[i] = &m.Targets[i]
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%s: no [[target]] entries", m.Path)
		}
		return out, nil
	}
	out := make([]*project.Target, 0, len(names))
	for _, name := range names {
		t, ok := m.Target(name)
		if !ok {
			return nil, diag.New(diag.OptInvalid, "unknown target %q", name).
				WithHint("targets: " + strings.Join(targetNames(m), ", "))
		}
		out = append(out, t)
	}
	return out, nil
}

func targetNames(m *project.Manifest) []string {
	names := make([]string, len(m.Targets))
	for i := range m.Targets {
		names[i] = m.Targets[i].Name
	}
	return names
}

// buildTargets turns manifest entries into pipeline targets. Target
// settings beat the environment, which beats [defaults].
func buildTargets(cmd *cobra.Command, m *project.Manifest, selected []*project.Target, flags project.Settings) ([]pipeline.Target, error) {
	envs, err := project.FromEnv()
	if err != nil {
		return nil, err
	}
	base := project.Builtin().Overlay(m.Defaults).Overlay(envs)
	var cache *payload.Cache
	cacheOpened := false

	out := make([]pipeline.Target, 0, len(selected))
	for _, t := range selected {
		s := base.Overlay(t.Settings).Overlay(flags)
		runtime, err := codegen.ParseRuntime(s.Runtime)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		argv := t.Argv
		if len(argv) == 0 && t.Path != "" {
			argv = []string{filepath.Base(t.Path)}
		}
		output := t.Output
		if output == "" {
			output = filepath.Join(m.Root, "out", t.Name+outputExt(runtime, s.Command))
		}
		if s.Cache && !cacheOpened {
			cache = openCache(cmd, true)
			cacheOpened = true
		}
		req := pipeline.Request{
			Name:        t.Name,
			Path:        t.Path,
			Stdin:       t.Stdin,
			Mode:        t.Mode(),
			Runtime:     runtime,
			Argv:        argv,
			Interpreter: s.Interpreter,
			Command:     s.Command,
			Level:       s.Level,
			Wrap:        s.Wrap,
		}
		if s.Cache {
			req.Cache = cache
		}
		out = append(out, pipeline.Target{Request: req, Output: output})
	}
	return out, nil
}

func printBuildResults(cmd *cobra.Command, root string, results []pipeline.TargetResult) {
	out := cmd.ErrOrStderr()
	timings := showTimings(cmd)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.Result.CacheErr != nil {
			warn(cmd, "%s: %v", r.Name, r.Result.CacheErr)
		}
		if !quiet(cmd) {
			fmt.Fprintf(out, "built %s -> %s (%s)\n", r.Name, formatPathForOutput(root, r.Output), r.Result.Syscall)
		}
		if timings {
			printTargetTimings(out, r)
		}
	}
}

func printTargetTimings(out io.Writer, r pipeline.TargetResult) {
	fmt.Fprintf(out, "  %s:\n", r.Name)
	var b strings.Builder
	printStageTimings(&b, r.Result.Timings)
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
