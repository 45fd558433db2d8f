// Package procguard ties the lifetime of spawned children to the launcher so
// a crash cannot leave an orphaned server behind.
//
// Install is called once, before any child is spawned. The returned guard is
// also kept in a package variable and is never released: on Windows releasing
// the job handle would kill the process tree it protects.
package procguard

import (
	"os/exec"
	"sync"
)

// Guard prepares commands so that they die with the launcher.
type Guard struct {
	prepare func(cmd *exec.Cmd)
}

var (
	installOnce sync.Once
	installed   *Guard
	installErr  error
)

// Install creates the platform guard. Repeated calls return the same guard.
func Install() (*Guard, error) {
	installOnce.Do(func() {
		installed, installErr = install()
	})
	return installed, installErr
}

// Prepare applies the platform's child attributes to cmd. It must be called
// before cmd.Start. A nil guard leaves cmd untouched.
func (g *Guard) Prepare(cmd *exec.Cmd) {
	if g == nil || g.prepare == nil {
		return
	}
	g.prepare(cmd)
}
