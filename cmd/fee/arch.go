package main

import (
	"debug/elf"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fee/internal/arch"
	"fee/internal/diag"
)

var archCmd = &cobra.Command{
	Use:   "arch [name]",
	Short: "List known architectures and their memfd_create numbers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runArch,
}

func init() {
	archCmd.Flags().Bool("host", false, "show the architecture of this machine")
}

var headerCaser = cases.Upper(language.Und)

func runArch(cmd *cobra.Command, args []string) error {
	host, err := cmd.Flags().GetBool("host")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if host {
		if len(args) > 0 {
			return diag.New(diag.OptInvalid, "--host takes no architecture name")
		}
		return printHostArch(out)
	}
	if len(args) == 1 {
		a, err := arch.Parse(args[0])
		if err != nil {
			return err
		}
		printArchDetail(out, a)
		return nil
	}
	_, err = fmt.Fprintln(out, renderArchTable(arch.All()))
	return err
}

func archRow(a arch.Arch) []string {
	s := a.Entry()
	flags := ""
	if s.FlagsMask != 0 {
		flags = fmt.Sprintf("%#x=%#x", s.FlagsMask, s.FlagsValue)
	}
	bits := "32"
	if s.Class == elf.ELFCLASS64 {
		bits = "64"
	}
	endian := "little"
	if s.Data == elf.ELFDATA2MSB {
		endian = "big"
	}
	return []string{
		s.Name,
		bits,
		endian,
		machineNames(s),
		flags,
		strconv.FormatUint(s.Syscall, 10),
		strings.Join(a.Aliases(), ", "),
	}
}

func machineNames(s arch.Entry) string {
	names := make([]string, 0, len(s.Machines))
	for _, m := range s.Machines {
		names = append(names, m.String())
	}
	return strings.Join(names, ",")
}

func renderArchTable(archs []arch.Arch) string {
	headerStyle := lipgloss.NewStyle().Bold(true)
	headers := []string{"name", "bits", "endian", "machine", "flags", "syscall", "aliases"}
	for i, h := range headers {
		headers[i] = headerStyle.Render(headerCaser.String(h))
	}
	rows := make([][]string, 0, len(archs))
	for _, a := range archs {
		rows = append(rows, archRow(a))
	}
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(_, _ int) lipgloss.Style { return cell }).
		String()
}

func printArchDetail(out io.Writer, a arch.Arch) {
	row := archRow(a)
	labels := []string{"name", "bits", "endian", "machine", "flags", "syscall", "aliases"}
	for i, label := range labels {
		if row[i] == "" {
			continue
		}
		fmt.Fprintf(out, "%-8s %s\n", label+":", row[i])
	}
}

func printHostArch(out io.Writer) error {
	a, number, ok := arch.Host()
	if !ok {
		return diag.New(diag.ArchUnknown, "memfd_create is only known for Linux hosts")
	}
	fmt.Fprintf(out, "host:    %s\n", a)
	fmt.Fprintf(out, "syscall: %d\n", number)
	if a != arch.Unknown && a.Syscall() != number {
		fmt.Fprintf(out, "warning: registry says %d\n", a.Syscall())
	}
	return nil
}
