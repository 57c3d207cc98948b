//go:build unix

package scheduler

import (
	"syscall"
)

// processExists sends signal 0, which probes for existence without
// delivering anything.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil
}
