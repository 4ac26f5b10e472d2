package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fee/internal/codegen"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List supported runtimes and their capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := cmd.Flags().GetBool("names")
		if err != nil {
			return err
		}
		if names {
			printRuntimeNames(cmd.OutOrStdout())
			return nil
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderRuntimes())
		return err
	},
}

func init() {
	runtimesCmd.Flags().Bool("names", false, "print runtime names only, one per line")
}

var labelCaser = cases.Title(language.English)

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func renderRuntimes() string {
	headerStyle := lipgloss.NewStyle().Bold(true)
	headers := []string{"runtime", "raw syscall", "libc calls", "stdin payload", "interpreter", "inline flag"}
	for i, h := range headers {
		headers[i] = headerStyle.Render(labelCaser.String(h))
	}
	var rows [][]string
	for _, r := range codegen.Runtimes() {
		caps := r.Capabilities()
		rows = append(rows, []string{
			r.String(),
			yesNo(caps.RawSyscall),
			yesNo(caps.Libraries),
			yesNo(caps.Stdin),
			r.DefaultInterpreter(),
			r.InlineFlag(),
		})
	}
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(_, _ int) lipgloss.Style { return cell }).
		String()
}

// printRuntimeNames lists runtime identifiers, one per line.
func printRuntimeNames(out io.Writer) {
	for _, r := range codegen.Runtimes() {
		fmt.Fprintln(out, r)
	}
}
