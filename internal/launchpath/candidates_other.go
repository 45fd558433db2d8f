//go:build !linux && !darwin && !windows

package launchpath

// JavaBin is the interpreter executable name on this platform.
const JavaBin = "java"

func defaultCandidates() []string {
	return commonCandidates()
}
