package main

import (
	"runtime"

	"github.com/slimevr/slimevr-launcher/app/cmd"
	"github.com/slimevr/slimevr-launcher/internal/dialog"
)

func init() {
	// Native window toolkits must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	defer dialog.Recover()
	cmd.Execute()
}
