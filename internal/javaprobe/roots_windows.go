//go:build windows

package javaprobe

import (
	"os"
	"path/filepath"
)

func wellKnownRoots() []string {
	var roots []string
	for _, env := range []string{"ProgramFiles", "ProgramW6432"} {
		base := os.Getenv(env)
		if base == "" {
			continue
		}
		for _, vendor := range []string{"Java", "Eclipse Adoptium", "Microsoft", "Zulu", "BellSoft"} {
			roots = append(roots, filepath.Join(base, vendor, "*"))
		}
	}
	return roots
}
