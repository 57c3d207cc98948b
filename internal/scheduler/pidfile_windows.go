//go:build windows

package scheduler

import (
	"syscall"
)

// processExists opens the process with the minimum access right needed to
// check for existence.
func processExists(pid int) bool {
	const processQueryLimitedInformation = 0x1000

	h, err := syscall.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err != nil {
		return false
	}
	syscall.CloseHandle(h)
	return true
}
