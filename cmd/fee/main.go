// Package main implements the fee CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fee/internal/diag"
	"fee/internal/version"
)

// appName names the payload cache directory.
const appName = "fee"

var rootCmd = &cobra.Command{
	Use:   "fee",
	Short: "Generate in-memory ELF loaders for scripting runtimes",
	Long: `fee turns an ELF executable into a python, perl, ruby or php program that
recreates the binary in an anonymous memory file (memfd_create) and executes
it without touching the filesystem.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: rootPreRun,
}

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	hintLabel  = color.New(color.FgCyan, color.Bold)
	warnLabel  = color.New(color.FgYellow, color.Bold)
)

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(archCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(runtimesCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show stage timings on stderr")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 1024, "events kept by the ring tracer")
}

// main executes the root command and exits with status 1 on failure.
func main() {
	rootCmd.Version = version.Version

	err := rootCmd.Execute()
	finishTracing(rootCmd, err)
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func rootPreRun(cmd *cobra.Command, _ []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	return setupTracing(cmd)
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stderr)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return diag.New(diag.OptInvalid, "invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// printError writes err and, for coded errors, its remedy.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("error:"), err)
	if hint := diag.HintOf(err); hint != "" {
		fmt.Fprintf(w, "%s %s\n", hintLabel.Sprint("hint:"), hint)
	}
	var derr *diag.Error
	if errors.As(err, &derr) && derr.Code.Recoverable() {
		fmt.Fprintf(w, "%s %s\n", hintLabel.Sprint("note:"), "the binary is fine; only the syscall number needs to come from you")
	}
}

// warn writes a non-fatal message unless --quiet is set.
func warn(cmd *cobra.Command, format string, args ...any) {
	if quiet(cmd) {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnLabel.Sprint("warning:"), fmt.Sprintf(format, args...))
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}

func showTimings(cmd *cobra.Command) bool {
	t, err := cmd.Root().PersistentFlags().GetBool("timings")
	return err == nil && t
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
