//go:build darwin

package javaprobe

func wellKnownRoots() []string {
	return []string{
		"/Library/Java/JavaVirtualMachines/*/Contents/Home",
		"/opt/homebrew/opt/openjdk*/libexec/openjdk.jdk/Contents/Home",
	}
}
