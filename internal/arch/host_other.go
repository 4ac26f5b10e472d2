//go:build !linux

package arch

import "runtime"

// Host reports ok=false outside Linux; the entry is still derived from GOARCH.
func Host() (a Arch, number uint64, ok bool) {
	a, _ = ForGOARCH(runtime.GOARCH)
	return a, 0, false
}
