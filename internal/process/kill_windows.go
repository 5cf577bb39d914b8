//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

// Isolate is a no-op on Windows; taskkill /T walks the child tree instead.
func Isolate(cmd *exec.Cmd) {}

// KillProcessGroup kills pid and its children with taskkill.
// /F = force kill, /T = tree kill.
func KillProcessGroup(pid int) {
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
