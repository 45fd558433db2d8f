// Package launchpath decides where the bundled server payload lives.
package launchpath

import (
	"os"
	"path/filepath"
)

// JarName is the server artifact every candidate directory must contain.
const JarName = "slimevr.jar"

// Options carries the command-line override.
type Options struct {
	// Override is the value of --launch-from-path. Empty means unset.
	Override string
}

// StatFunc matches os.Stat and is swapped out in tests.
type StatFunc func(name string) (os.FileInfo, error)

// Resolver resolves the launch path against a filesystem.
type Resolver struct {
	Stat       StatFunc
	Candidates func() []string
}

// NewResolver returns a resolver backed by the real filesystem and the
// platform's default candidate list.
func NewResolver() *Resolver {
	return &Resolver{Stat: os.Stat, Candidates: defaultCandidates}
}

// Resolve returns the directory containing the server payload. The boolean is
// false when no server could be found, which callers treat as a server-less
// launch rather than an error.
func Resolve(opts Options) (string, bool) {
	return NewResolver().Resolve(opts)
}

// Resolve applies the override first and falls back to the default rule.
// The result is always absolute: the server is started with the launch path
// as its working directory, and a relative interpreter path would then be
// looked up from inside it.
func (r *Resolver) Resolve(opts Options) (string, bool) {
	if opts.Override != "" && r.isDir(opts.Override) {
		return absolute(opts.Override), true
	}
	for _, dir := range r.Candidates() {
		if dir == "" {
			continue
		}
		if r.isFile(filepath.Join(dir, JarName)) {
			return absolute(dir), true
		}
	}
	return "", false
}

// BundledJava returns the interpreter shipped next to the server, if present.
func (r *Resolver) BundledJava(dir string) (string, bool) {
	bin := filepath.Join(dir, "jre", "bin", JavaBin)
	if r.isFile(bin) {
		return bin, true
	}
	return "", false
}

func (r *Resolver) isDir(path string) bool {
	info, err := r.Stat(path)
	return err == nil && info.IsDir()
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.Stat(path)
	return err == nil && !info.IsDir()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// commonCandidates are checked on every platform before the OS-specific ones.
func commonCandidates() []string {
	var dirs []string
	// AppImage mounts its payload under APPDIR.
	if dir := os.Getenv("APPDIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}
