//go:build windows

package launchpath

// JavaBin is the interpreter executable name on this platform.
const JavaBin = "java.exe"

func defaultCandidates() []string {
	return commonCandidates()
}
