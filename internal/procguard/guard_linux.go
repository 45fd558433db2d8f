//go:build linux

package procguard

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Linux keeps children alive when the parent dies, so every child is asked to
// receive SIGKILL when the launcher goes away.
func install() (*Guard, error) {
	return &Guard{prepare: func(cmd *exec.Cmd) {
		if cmd.SysProcAttr == nil {
			cmd.SysProcAttr = &syscall.SysProcAttr{}
		}
		cmd.SysProcAttr.Pdeathsig = unix.SIGKILL
	}}, nil
}
