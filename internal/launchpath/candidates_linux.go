//go:build linux

package launchpath

// JavaBin is the interpreter executable name on this platform.
const JavaBin = "java"

func defaultCandidates() []string {
	return append(commonCandidates(),
		"/app/share/slimevr", // flatpak
		"/usr/share/slimevr",
	)
}
