//go:build windows

package procguard

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// job is never closed. Closing it would terminate the launcher and every
// descendant assigned to it.
var job windows.Handle

func install() (*Guard, error) {
	h, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		h,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		return nil, fmt.Errorf("set job limits: %w", err)
	}
	if err := windows.AssignProcessToJobObject(h, windows.CurrentProcess()); err != nil {
		return nil, fmt.Errorf("assign launcher to job: %w", err)
	}
	job = h
	return &Guard{prepare: func(cmd *exec.Cmd) {
		if cmd.SysProcAttr == nil {
			cmd.SysProcAttr = &syscall.SysProcAttr{}
		}
		// Children inherit the job; only the console window needs suppressing.
		cmd.SysProcAttr.HideWindow = true
		cmd.SysProcAttr.CreationFlags |= windows.CREATE_NO_WINDOW
	}}, nil
}
