//go:build unix

package playback

import (
	"os/exec"
	"syscall"
)

// detach puts the player in its own session so it survives the tick process
// and does not receive the driver's signals.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
