package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fee/internal/payload"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the payload cache",
	Long:  "Remove the encoded payloads stored under $XDG_CACHE_HOME/fee by --cache.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	dir, err := payload.CacheDir(appName)
	if err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "payload cache not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}
	cache, err := payload.OpenCache(appName)
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", dir)
	return nil
}
