package launchpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestResolver(candidates ...string) *Resolver {
	return &Resolver{
		Stat:       os.Stat,
		Candidates: func() []string { return candidates },
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolveOverrideExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	// The override wins even without a jar and even if a candidate would match.
	other := t.TempDir()
	touch(t, filepath.Join(other, JarName))

	got, ok := newTestResolver(other).Resolve(Options{Override: dir})
	require.True(t, ok)
	require.Equal(t, dir, got)
}

func TestResolveRelativeOverrideBecomesAbsolute(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "server"), 0o755))
	touch(t, filepath.Join(root, "server", "jre", "bin", JavaBin))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	r := newTestResolver()
	got, ok := r.Resolve(Options{Override: "server"})
	require.True(t, ok)
	require.True(t, filepath.IsAbs(got))
	require.Equal(t, "server", filepath.Base(got))

	bin, ok := r.BundledJava(got)
	require.True(t, ok)
	require.True(t, filepath.IsAbs(bin))
}

func TestResolveOverrideMissingFallsBack(t *testing.T) {
	server := t.TempDir()
	touch(t, filepath.Join(server, JarName))

	got, ok := newTestResolver("", server).Resolve(Options{Override: filepath.Join(server, "nope")})
	require.True(t, ok)
	require.Equal(t, server, got)
}

func TestResolveOverrideFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	touch(t, file)

	_, ok := newTestResolver().Resolve(Options{Override: file})
	require.False(t, ok)
}

func TestResolveFirstCandidateWithJar(t *testing.T) {
	empty := t.TempDir()
	first := t.TempDir()
	second := t.TempDir()
	touch(t, filepath.Join(first, JarName))
	touch(t, filepath.Join(second, JarName))

	got, ok := newTestResolver(empty, first, second).Resolve(Options{})
	require.True(t, ok)
	require.Equal(t, first, got)
}

func TestResolveNoServer(t *testing.T) {
	got, ok := newTestResolver(t.TempDir()).Resolve(Options{})
	require.False(t, ok)
	require.Empty(t, got)
}

func TestBundledJava(t *testing.T) {
	dir := t.TempDir()
	r := newTestResolver()
	_, ok := r.BundledJava(dir)
	require.False(t, ok)

	bin := filepath.Join(dir, "jre", "bin", JavaBin)
	touch(t, bin)
	got, ok := r.BundledJava(dir)
	require.True(t, ok)
	require.Equal(t, bin, got)
}
