//go:build windows

package webview

import (
	"fmt"
	"unsafe"

	"github.com/jchv/go-webview2"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// WebView2 runtime client id registered by the Evergreen installer.
const webview2ClientKey = `Microsoft\EdgeUpdate\Clients\{F3017226-FE2A-4295-8BDF-00C3A9A7E4C5}`

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procSetWindowPos  = user32.NewProc("SetWindowPos")
	procIsZoomed      = user32.NewProc("IsZoomed")
	procIsIconic      = user32.NewProc("IsIconic")
	procShowWindow    = user32.NewProc("ShowWindow")
	procSetForeground = user32.NewProc("SetForegroundWindow")
)

const (
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
	swMaximize    = 3
	swRestore     = 9
)

type rect struct {
	Left, Top, Right, Bottom int32
}

// Available reports whether the WebView2 runtime is installed, machine-wide
// or for the current user.
func Available() bool {
	lookups := []struct {
		root registry.Key
		path string
	}{
		{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\` + webview2ClientKey},
		{registry.LOCAL_MACHINE, `SOFTWARE\` + webview2ClientKey},
		{registry.CURRENT_USER, `Software\` + webview2ClientKey},
	}
	for _, l := range lookups {
		k, err := registry.OpenKey(l.root, l.path, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		pv, _, err := k.GetStringValue("pv")
		k.Close()
		if err == nil && pv != "" && pv != "0.0.0.0" {
			return true
		}
	}
	return false
}

type webview2Window struct {
	view  webview2.WebView
	hwnd  uintptr
	cache boundsCache
	done  chan struct{}
	// gate keeps Dispatch off a view that Run is destroying.
	gate uiGate
}

// Open creates a WebView2 window on opts.URL.
func Open(opts Options) (Window, error) {
	if !Available() {
		return nil, ErrUnavailable
	}
	view := webview2.NewWithOptions(webview2.WebViewOptions{
		Debug:     opts.Debug,
		AutoFocus: true,
		DataPath:  opts.ProfileDir,
		WindowOptions: webview2.WindowOptions{
			Title:  opts.Title,
			Width:  uint(opts.Width),
			Height: uint(opts.Height),
			Center: opts.Restore == nil,
		},
	})
	if view == nil {
		return nil, ErrCreate
	}
	w := &webview2Window{
		view: view,
		hwnd: uintptr(view.Window()),
		done: make(chan struct{}),
	}
	if opts.MinWidth > 0 && opts.MinHeight > 0 {
		view.SetSize(opts.MinWidth, opts.MinHeight, webview2.HintMin)
	}
	view.SetSize(opts.Width, opts.Height, webview2.HintNone)
	if opts.Restore != nil {
		if err := w.SetBounds(*opts.Restore); err != nil {
			view.Destroy()
			return nil, fmt.Errorf("%w: restore bounds: %v", ErrCreate, err)
		}
	}
	view.Navigate(opts.URL)
	if b, err := w.live(); err == nil {
		w.cache.store(b)
	}
	return w, nil
}

func (w *webview2Window) Bind(name string, fn any) error {
	return w.view.Bind(name, fn)
}

// dispatch queues f on the UI thread. It reports false once the view is
// gone.
func (w *webview2Window) dispatch(f func()) bool {
	return w.gate.enter(func() { w.view.Dispatch(f) })
}

// Eval hops onto the UI thread; WebView2 rejects calls from anywhere else.
func (w *webview2Window) Eval(js string) {
	w.dispatch(func() { w.view.Eval(js) })
}

func (w *webview2Window) live() (Bounds, error) {
	var r rect
	ok, _, err := procGetWindowRect.Call(w.hwnd, uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return Bounds{}, fmt.Errorf("GetWindowRect: %w", err)
	}
	zoomed, _, _ := procIsZoomed.Call(w.hwnd)
	return Bounds{
		X:         int(r.Left),
		Y:         int(r.Top),
		Width:     int(r.Right - r.Left),
		Height:    int(r.Bottom - r.Top),
		Maximized: zoomed != 0,
	}, nil
}

func (w *webview2Window) Bounds() (Bounds, error) {
	select {
	case <-w.done:
	default:
		if b, err := w.live(); err == nil {
			w.cache.store(b)
			return b, nil
		}
	}
	if b, ok := w.cache.load(); ok {
		return b, nil
	}
	return Bounds{}, fmt.Errorf("window bounds unavailable")
}

func (w *webview2Window) SetBounds(b Bounds) error {
	if b.Maximized {
		procShowWindow.Call(w.hwnd, swMaximize)
		return nil
	}
	ok, _, err := procSetWindowPos.Call(w.hwnd, 0,
		uintptr(b.X), uintptr(b.Y), uintptr(b.Width), uintptr(b.Height),
		swpNoZOrder|swpNoActivate)
	if ok == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

func (w *webview2Window) Focus() {
	w.dispatch(func() {
		if iconic, _, _ := procIsIconic.Call(w.hwnd); iconic != 0 {
			procShowWindow.Call(w.hwnd, swRestore)
		}
		procSetForeground.Call(w.hwnd)
	})
}

func (w *webview2Window) Run() {
	go w.cache.track(w.done, func() (Bounds, error) {
		result := make(chan Bounds, 1)
		if !w.dispatch(func() {
			if b, err := w.live(); err == nil {
				result <- b
			}
			close(result)
		}) {
			return Bounds{}, fmt.Errorf("window closed")
		}
		select {
		case b, ok := <-result:
			if ok {
				return b, nil
			}
		case <-w.done:
		}
		return Bounds{}, fmt.Errorf("window bounds unavailable")
	})
	w.view.Run()
	w.gate.shut(func() { close(w.done) })
	w.view.Destroy()
}

func (w *webview2Window) Close() {
	w.dispatch(w.view.Terminate)
}
