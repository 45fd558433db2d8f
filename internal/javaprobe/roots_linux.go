//go:build linux

package javaprobe

func wellKnownRoots() []string {
	return []string{"/usr/lib/jvm/*", "/usr/java/*", "/opt/java/*"}
}
