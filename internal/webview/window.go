// Package webview hosts the GUI in a native browser window and connects it to
// the launcher's event bus.
package webview

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrUnavailable means no webview runtime is installed.
	ErrUnavailable = errors.New("webview runtime unavailable")
	// ErrCreate means a runtime exists but the window failed to materialize.
	ErrCreate = errors.New("create webview window")
)

// Bounds is a window's outer geometry in screen pixels.
type Bounds struct {
	X, Y          int
	Width, Height int
	Maximized     bool
}

// Options configures Open.
type Options struct {
	URL        string
	Title      string
	Width      int
	Height     int
	MinWidth   int
	MinHeight  int
	ProfileDir string
	// Restore positions the window; nil centers it.
	Restore *Bounds
	Debug   bool
}

// Window is a native window rendering the GUI.
type Window interface {
	// Bind exposes fn to the page as window.<name>, returning a promise.
	Bind(name string, fn any) error
	// Eval runs js in the page. It is safe to call from any goroutine.
	Eval(js string)
	Bounds() (Bounds, error)
	SetBounds(Bounds) error
	// Focus raises the window above others.
	Focus()
	// Run blocks until the window closes.
	Run()
	Close()
}

const boundsInterval = 2 * time.Second

// boundsCache remembers the last geometry seen while the window was alive,
// since both backends lose it once the window is gone.
type boundsCache struct {
	mu   sync.Mutex
	last Bounds
	ok   bool
}

func (c *boundsCache) store(b Bounds) {
	c.mu.Lock()
	c.last, c.ok = b, true
	c.mu.Unlock()
}

func (c *boundsCache) load() (Bounds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.ok
}

// track refreshes the cache until done closes.
func (c *boundsCache) track(done <-chan struct{}, fetch func() (Bounds, error)) {
	ticker := time.NewTicker(boundsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if b, err := fetch(); err == nil {
				c.store(b)
			}
		}
	}
}

// uiGate admits calls onto a native view until the view is torn down. Calls
// admitted before shut finish before shut returns.
type uiGate struct {
	mu     sync.RWMutex
	closed bool
}

// enter runs f unless the gate is shut, reporting whether it ran.
func (g *uiGate) enter(f func()) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false
	}
	f()
	return true
}

// shut closes the gate and runs f while no call is in flight.
func (g *uiGate) shut(f func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	if f != nil {
		f()
	}
}
