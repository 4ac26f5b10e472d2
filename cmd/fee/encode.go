package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fee/internal/payload"
	"fee/internal/pipeline"
	"fee/internal/trace"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [flags] <file|->",
	Short: "Print the compressed, base64-encoded payload",
	Long: `Print only the encoded payload. Pipe it into a program generated with
--stdin:

  fee encode ./tool | ssh host "$(fee generate --stdin -a x86_64 --argv tool -c)"`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	addSettingsFlags(encodeCmd, false)
	encodeCmd.Flags().Bool("verify", false, "decode the result and compare it with the input")
	encodeCmd.Flags().StringP("output", "o", "", "write the payload to a file instead of stdout")
}

func runEncode(cmd *cobra.Command, args []string) error {
	ctx, span := beginDriver(cmd)
	defer span.End("")

	verify, err := cmd.Flags().GetBool("verify")
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

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var timings pipeline.Timings
	stage := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, string(pipeline.StageEncode), trace.CurrentSpan(ctx))
	enc, hit, err := payload.EncodeCached(openCache(cmd, settings.Cache), data, settings.Level, settings.Wrap)
	timings.Set(pipeline.StageEncode, stage.WithExtra("cache", strconv.FormatBool(hit)).End(""))
	if errors.Is(err, payload.ErrCacheWrite) {
		warn(cmd, "%v", err)
	} else if err != nil {
		return err
	}

	if verify {
		back, err := payload.Decode(enc.Text)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !bytes.Equal(back, data) {
			return errors.New("verification failed: decoded payload differs from the input")
		}
	}

	text := withNewline(enc.Text)
	if outputPath != "" {
		err = pipeline.WriteOutput(outputPath, text, pipeline.OutputMode)
	} else {
		_, err = io.WriteString(cmd.OutOrStdout(), text)
	}
	if err != nil {
		return err
	}

	if showTimings(cmd) {
		printStageTimings(cmd.ErrOrStderr(), timings)
	}
	if !quiet(cmd) && (verify || outputPath != "") {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d bytes -> %d compressed -> %d encoded (level %d)\n",
			enc.RawSize, enc.CompressedSize, len(enc.Text), settings.Level)
	}
	return nil
}
