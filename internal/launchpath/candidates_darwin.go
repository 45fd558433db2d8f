//go:build darwin

package launchpath

import (
	"os"
	"path/filepath"
)

// JavaBin is the interpreter executable name on this platform.
const JavaBin = "java"

func defaultCandidates() []string {
	dirs := commonCandidates()
	// Bundled payloads live in Contents/Resources next to Contents/MacOS.
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "..", "Resources"))
	}
	return dirs
}
