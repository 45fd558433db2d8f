// Package javaprobe finds Java runtimes installed on the host that are new
// enough to run the server.
package javaprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slimevr/slimevr-launcher/internal/launchpath"
)

// MinimumVersion is the lowest Java feature release the server supports.
const MinimumVersion = 17

// ErrNoCompatibleJava is returned by Select when nothing satisfies
// MinimumVersion.
var ErrNoCompatibleJava = errors.New("no compatible java installation")

// Installation is a Java executable and its feature release number.
type Installation struct {
	Path    string
	Version int
}

// Prober enumerates and inspects candidate interpreters. The function fields
// default to the real OS and are replaced in tests.
type Prober struct {
	Getenv       func(string) string
	Glob         func(string) ([]string, error)
	Stat         func(string) (os.FileInfo, error)
	EvalSymlinks func(string) (string, error)
	ReadFile     func(string) ([]byte, error)
	Run          func(ctx context.Context, name string, args ...string) (string, error)
	// Roots lists glob patterns that expand to Java home directories.
	Roots   []string
	Minimum int
}

// NewProber returns a prober bound to the host.
func NewProber() *Prober {
	return &Prober{
		Getenv:       os.Getenv,
		Glob:         filepath.Glob,
		Stat:         os.Stat,
		EvalSymlinks: filepath.EvalSymlinks,
		ReadFile:     os.ReadFile,
		Run:          runCommand,
		Roots:        wellKnownRoots(),
		Minimum:      MinimumVersion,
	}
}

// Probe returns compatible installations on the host, newest first.
func Probe(ctx context.Context) []Installation {
	return NewProber().Probe(ctx)
}

// Probe inspects every candidate. Candidates that cannot be read or whose
// version cannot be determined are skipped.
func (p *Prober) Probe(ctx context.Context) []Installation {
	var found []Installation
	seen := make(map[string]bool)
	for _, candidate := range p.Candidates() {
		if ctx.Err() != nil {
			break
		}
		info, err := p.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		resolved, err := p.EvalSymlinks(candidate)
		if err != nil {
			resolved = candidate
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		version, ok := p.version(ctx, candidate, resolved)
		if !ok {
			continue
		}
		found = append(found, Installation{Path: candidate, Version: version})
	}
	return Filter(found, p.Minimum)
}

// Candidates lists interpreter paths in priority order: JAVA_HOME, then PATH,
// then the platform's well-known install roots.
func (p *Prober) Candidates() []string {
	var out []string
	if home := p.Getenv("JAVA_HOME"); home != "" {
		out = append(out, filepath.Join(home, "bin", launchpath.JavaBin))
	}
	for _, dir := range filepath.SplitList(p.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		out = append(out, filepath.Join(dir, launchpath.JavaBin))
	}
	for _, pattern := range p.Roots {
		homes, err := p.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(homes)))
		for _, home := range homes {
			out = append(out, filepath.Join(home, "bin", launchpath.JavaBin))
		}
	}
	return out
}

func (p *Prober) version(ctx context.Context, candidate, resolved string) (int, bool) {
	home := filepath.Dir(filepath.Dir(resolved))
	if data, err := p.ReadFile(filepath.Join(home, "release")); err == nil {
		if v, ok := parseRelease(data); ok {
			return v, true
		}
	}
	out, err := p.Run(ctx, candidate, "-version")
	if err != nil {
		return 0, false
	}
	return parseVersionOutput(out)
}

// Filter keeps installations at or above min, sorted newest first. Entries
// with equal versions keep their relative order.
func Filter(all []Installation, min int) []Installation {
	var out []Installation
	for _, inst := range all {
		if inst.Version >= min {
			out = append(out, inst)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version > out[j].Version
	})
	return out
}

// Select picks the bundled interpreter when present, otherwise the first
// probed installation.
func Select(bundled string, found []Installation) (string, error) {
	if bundled != "" {
		return bundled, nil
	}
	if len(found) == 0 {
		return "", ErrNoCompatibleJava
	}
	return found[0].Path, nil
}

var (
	releaseLine   = regexp.MustCompile(`(?m)^JAVA_VERSION="([^"]+)"`)
	versionOutput = regexp.MustCompile(`version "([^"]+)"`)
)

func parseRelease(data []byte) (int, bool) {
	m := releaseLine.FindSubmatch(data)
	if m == nil {
		return 0, false
	}
	return ParseVersion(string(m[1]))
}

func parseVersionOutput(out string) (int, bool) {
	m := versionOutput.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	return ParseVersion(m[1])
}

// ParseVersion extracts the feature release from a Java version string such
// as "17.0.2", "21-ea" or the legacy "1.8.0_292".
func ParseVersion(s string) (int, bool) {
	s = strings.TrimSpace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	if major == 1 && len(parts) > 1 {
		if minor, err := strconv.Atoi(parts[1]); err == nil {
			return minor, true
		}
	}
	return major, true
}

// runCommand executes a short-lived command and returns its combined output.
// Java prints its version banner on stderr.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(out.String())
		if detail != "" {
			return "", fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), detail)
		}
		return "", err
	}
	return out.String(), nil
}
