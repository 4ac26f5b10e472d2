package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fee/internal/arch"
	"fee/internal/diag"
	"fee/internal/elfhdr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <elf>",
	Short: "Show the ELF classification and detected architecture",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type inspectReport struct {
	Path    string `json:"path"`
	Bits    int    `json:"bits"`
	Endian  string `json:"endian"`
	Machine string `json:"machine"`
	Flags   uint32 `json:"flags"`
	Arch    string `json:"arch,omitempty"`
	Syscall uint64 `json:"syscall,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, span := beginDriver(cmd)
	defer span.End("")

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return diag.New(diag.OptInvalid, "unsupported format %q (must be pretty or json)", format)
	}

	header, err := readHeader(args[0])
	if err != nil {
		return err
	}
	c, err := elfhdr.Classify(header)
	if err != nil {
		return err
	}
	report := inspectReport{
		Path:    args[0],
		Bits:    c.Bits(),
		Endian:  c.Endian(),
		Machine: c.Machine.String(),
		Flags:   c.Flags,
	}
	a, detectErr := arch.Detect(c)
	if detectErr == nil {
		report.Arch = a.String()
		report.Syscall = a.Syscall()
	} else {
		report.Error = detectErr.Error()
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printInspect(out, &report)
	}
	return detectErr
}

func printInspect(out io.Writer, r *inspectReport) {
	fmt.Fprintf(out, "file:    %s\n", r.Path)
	fmt.Fprintf(out, "class:   %d-bit %s-endian\n", r.Bits, r.Endian)
	fmt.Fprintf(out, "machine: %s\n", r.Machine)
	fmt.Fprintf(out, "flags:   %#x\n", r.Flags)
	if r.Arch != "" {
		fmt.Fprintf(out, "arch:    %s\n", r.Arch)
		fmt.Fprintf(out, "syscall: %d\n", r.Syscall)
	}
}

// readHeader reads at most elfhdr.HeaderSize bytes from path.
func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	buf := make([]byte, elfhdr.HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return buf[:n], nil
}
