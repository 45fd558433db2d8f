//go:build !windows

package webview

import (
	"fmt"
	"sync"

	"github.com/zserge/lorca"
)

// Available reports whether a Chrome or Chromium install can host the GUI.
func Available() bool {
	return lorca.LocateChrome() != ""
}

type lorcaWindow struct {
	ui        lorca.UI
	cache     boundsCache
	closeOnce sync.Once
}

// Open starts a Chrome app window on opts.URL.
func Open(opts Options) (Window, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	args := []string{"--class=" + opts.Title}
	ui, err := lorca.New(opts.URL, opts.ProfileDir, opts.Width, opts.Height, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	w := &lorcaWindow{ui: ui}
	if opts.Restore != nil {
		if err := w.SetBounds(*opts.Restore); err != nil {
			ui.Close()
			return nil, fmt.Errorf("%w: restore bounds: %v", ErrCreate, err)
		}
	}
	if b, err := w.live(); err == nil {
		w.cache.store(b)
	}
	return w, nil
}

func (w *lorcaWindow) Bind(name string, fn any) error {
	return w.ui.Bind(name, fn)
}

func (w *lorcaWindow) Eval(js string) {
	w.ui.Eval(js)
}

func (w *lorcaWindow) live() (Bounds, error) {
	b, err := w.ui.Bounds()
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{
		X:         b.Left,
		Y:         b.Top,
		Width:     b.Width,
		Height:    b.Height,
		Maximized: b.WindowState == lorca.WindowStateMaximized,
	}, nil
}

func (w *lorcaWindow) Bounds() (Bounds, error) {
	if b, err := w.live(); err == nil {
		w.cache.store(b)
		return b, nil
	}
	if b, ok := w.cache.load(); ok {
		return b, nil
	}
	return Bounds{}, fmt.Errorf("window bounds unavailable")
}

func (w *lorcaWindow) SetBounds(b Bounds) error {
	if b.Maximized {
		return w.ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateMaximized})
	}
	// Chrome rejects geometry changes on a maximized window.
	if err := w.ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateNormal}); err != nil {
		return err
	}
	return w.ui.SetBounds(lorca.Bounds{
		Left:        b.X,
		Top:         b.Y,
		Width:       b.Width,
		Height:      b.Height,
		WindowState: lorca.WindowStateNormal,
	})
}

func (w *lorcaWindow) Focus() {
	if b, err := w.ui.Bounds(); err == nil && b.WindowState == lorca.WindowStateMinimized {
		_ = w.ui.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateNormal})
	}
	w.ui.Eval("window.focus()")
}

func (w *lorcaWindow) Run() {
	go w.cache.track(w.ui.Done(), w.live)
	<-w.ui.Done()
}

func (w *lorcaWindow) Close() {
	w.closeOnce.Do(func() { w.ui.Close() })
}
