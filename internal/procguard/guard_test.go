package procguard

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstallIsIdempotent(t *testing.T) {
	first, err := Install()
	require.NoError(t, err)
	second, err := Install()
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestPrepareNilGuard(t *testing.T) {
	var g *Guard
	cmd := exec.Command("true")
	g.Prepare(cmd)
	require.Nil(t, cmd.SysProcAttr)
}

func TestPrepareCustom(t *testing.T) {
	called := false
	g := &Guard{prepare: func(*exec.Cmd) { called = true }}
	g.Prepare(exec.Command("true"))
	require.True(t, called)
}
