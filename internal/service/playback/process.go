package playback

import (
	"os"
	"runtime"

	"github.com/mitchellh/go-ps"
)

// linuxCommLength is the length the kernel truncates process names to.
const linuxCommLength = 15

// terminateByExecutable kills every other process running the executable.
func terminateByExecutable(executable string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	thisProcessID := os.Getpid()
	killed := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID || !sameExecutable(process.Executable(), executable) {
			continue
		}

		running, err := os.FindProcess(process.Pid())
		if err != nil {
			return killed, err
		}

		if err = running.Kill(); err != nil {
			return killed, err
		}

		killed++
	}

	return killed, nil
}

// sameExecutable compares a process name with an executable base name,
// allowing for the truncated names reported on Linux.
func sameExecutable(processName, executable string) bool {
	if processName == executable {
		return true
	}

	return runtime.GOOS == "linux" &&
		len(executable) > linuxCommLength &&
		processName == executable[:linuxCommLength]
}
