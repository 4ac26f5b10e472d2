//go:build linux

package arch

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Host returns the entry for the running binary's ABI and the
// memfd_create number the Go toolchain compiled in for it.
func Host() (a Arch, number uint64, ok bool) {
	a, _ = ForGOARCH(runtime.GOARCH)
	return a, uint64(unix.SYS_MEMFD_CREATE), true
}
