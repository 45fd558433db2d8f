package webview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimevr/slimevr-launcher/internal/eventbus"
)

type recordingPage struct {
	scripts []string
	bound   []string
	failOn  string
}

func (p *recordingPage) Eval(js string) { p.scripts = append(p.scripts, js) }

func (p *recordingPage) Bind(name string, fn any) error {
	if name == p.failOn {
		return errors.New("bind refused")
	}
	p.bound = append(p.bound, name)
	return nil
}

func TestDispatchScript(t *testing.T) {
	js, err := DispatchScript("server-status", []string{"stdout", "hello"})
	require.NoError(t, err)
	require.Equal(t, `window.dispatchEvent(new CustomEvent("server-status", {detail: ["stdout","hello"]}));`, js)

	_, err = DispatchScript("x", func() {})
	require.Error(t, err)
}

func TestBridgeForwardsTopics(t *testing.T) {
	bus := eventbus.New(nil)
	page := &recordingPage{}
	bridge := NewBridge(page, nil)
	require.NoError(t, bridge.Forward(bus, "server-status", "log://log"))

	require.NoError(t, bus.Emit("server-status", []string{"terminated", "{}"}))
	require.NoError(t, bus.Emit("log://log", map[string]any{"level": 3, "message": "hi"}))
	require.NoError(t, bus.Emit("unrelated", 1))
	require.Len(t, page.scripts, 2)
	require.Contains(t, page.scripts[0], `"server-status"`)
	require.Contains(t, page.scripts[1], `"message":"hi"`)

	bridge.Close()
	require.Zero(t, bus.Subscribers("server-status"))
	require.NoError(t, bus.Emit("server-status", []string{"stdout", "late"}))
	require.Len(t, page.scripts, 2)
}

func TestBridgeDropsUnencodablePayload(t *testing.T) {
	bus := eventbus.New(nil)
	page := &recordingPage{}
	require.NoError(t, NewBridge(page, nil).Forward(bus, "t"))
	require.NoError(t, bus.Emit("t", make(chan int)))
	require.Empty(t, page.scripts)
}

func TestBindAllSortedAndStopsOnError(t *testing.T) {
	page := &recordingPage{}
	require.NoError(t, BindAll(page, map[string]any{"b": func() {}, "a": func() {}}))
	require.Equal(t, []string{"a", "b"}, page.bound)

	page = &recordingPage{failOn: "b"}
	err := BindAll(page, map[string]any{"a": func() {}, "b": func() {}, "c": func() {}})
	require.ErrorContains(t, err, "bind b")
	require.Equal(t, []string{"a"}, page.bound)
}
