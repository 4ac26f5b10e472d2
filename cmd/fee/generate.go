package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fee/internal/codegen"
	"fee/internal/diag"
	"fee/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate [flags] <elf> [-- argv...]",
	Short: "Generate a loader program for an ELF executable",
	Long: `Generate a program for the chosen runtime that writes the ELF executable
into an anonymous memory file and executes it.

The syscall number is detected from the ELF header unless --arch, --syscall
or --lookup is given. With --stdin the program reads the encoded payload
from standard input instead of embedding it (see fee encode).`,
	Example: `  fee generate ./tool | ssh host python3
  fee generate -r perl -a arm64 ./tool -- tool -v
  fee generate --stdin -a x86_64 --argv 'tool -l' -c`,
	Aliases: []string{"gen"},
	Args:    cobra.ArbitraryArgs,
	RunE:    runGenerate,
}

func init() {
	addModeFlags(generateCmd)
	addSettingsFlags(generateCmd, true)
	generateCmd.Flags().String("argv", "", "space-separated argv for the program, argv[0] included (default: the input path)")
	generateCmd.Flags().Bool("stdin", false, "read the payload from standard input at run time")
	generateCmd.Flags().StringP("output", "o", "", "write the program to a file instead of stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, span := beginDriver(cmd)
	defer span.End("")

	before, after := splitArgsAtDash(cmd, args)
	if len(before) > 1 {
		return diag.New(diag.OptInvalid, "expected one input file, got %d", len(before)).
			WithHint("put the program's arguments after --")
	}
	path := ""
	if len(before) == 1 {
		path = before[0]
	}

	stdin, err := cmd.Flags().GetBool("stdin")
	if err != nil {
		return err
	}
	if path == "" && !stdin {
		return diag.New(diag.OptInvalid, "missing input file").
			WithHint("pass the ELF path, or --stdin to stream the payload at run time")
	}
	argvFlag, err := cmd.Flags().GetString("argv")
	if err != nil {
		return err
	}
	argv, err := resolveArgv(path, argvFlag, after)
	if err != nil {
		return err
	}
	mode, err := resolveMode(cmd)
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	settings, _, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	runtime, err := codegen.ParseRuntime(settings.Runtime)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, &pipeline.Request{
		Path:        path,
		Stdin:       stdin,
		Mode:        mode,
		Runtime:     runtime,
		Argv:        argv,
		Interpreter: settings.Interpreter,
		Command:     settings.Command,
		Level:       settings.Level,
		Wrap:        settings.Wrap,
		Cache:       openCache(cmd, settings.Cache),
	})
	if err != nil {
		return err
	}
	if res.CacheErr != nil {
		warn(cmd, "%v", res.CacheErr)
	}

	if outputPath != "" {
		err = writeTimed(&res, func() error {
			return pipeline.WriteOutput(outputPath, withNewline(res.Source), pipeline.OutputMode)
		})
	} else {
		err = writeTimed(&res, func() error {
			_, werr := io.WriteString(cmd.OutOrStdout(), withNewline(res.Source))
			return werr
		})
	}
	if err != nil {
		return err
	}

	span.WithExtra("runtime", runtime.String()).WithExtra("syscall", res.Syscall.String())
	if showTimings(cmd) {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if outputPath != "" && !quiet(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %s)\n", outputPath, runtime, res.Syscall)
	}
	return nil
}

func writeTimed(res *pipeline.Result, write func() error) error {
	start := timeNow()
	if err := write(); err != nil {
		return err
	}
	res.Timings.Set(pipeline.StageWrite, timeSince(start))
	return nil
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
