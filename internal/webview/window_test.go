package webview

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUIGateRejectsAfterShut(t *testing.T) {
	var g uiGate
	calls := 0
	require.True(t, g.enter(func() { calls++ }))

	shut := 0
	g.shut(func() { shut++ })
	g.shut(func() { shut++ })
	require.Equal(t, 1, shut)

	require.False(t, g.enter(func() { calls++ }))
	require.Equal(t, 1, calls)
}

func TestUIGateShutWaitsForInFlightCall(t *testing.T) {
	var g uiGate
	entered := make(chan struct{})
	release := make(chan struct{})
	var inFlight atomic.Bool

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.enter(func() {
			inFlight.Store(true)
			close(entered)
			<-release
			inFlight.Store(false)
		})
	}()
	<-entered

	shutDone := make(chan bool)
	go func() {
		g.shut(func() { shutDone <- inFlight.Load() })
	}()
	select {
	case <-shutDone:
		t.Fatal("shut ran while a call was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.False(t, <-shutDone)
	wg.Wait()
}

func TestBoundsCache(t *testing.T) {
	var c boundsCache
	_, ok := c.load()
	require.False(t, ok)

	c.store(Bounds{X: 1, Width: 400, Height: 700})
	b, ok := c.load()
	require.True(t, ok)
	require.Equal(t, 400, b.Width)
}
