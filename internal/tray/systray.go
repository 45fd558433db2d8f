//go:build !darwin

package tray

import (
	"runtime"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/slimevr/slimevr-launcher/internal/dialog"
)

type systrayMenu struct {
	items map[string]*systray.MenuItem
}

func (m *systrayMenu) SetTooltip(text string) {
	systray.SetTooltip(text)
}

func (m *systrayMenu) SetItemTitle(id, title string) {
	if item, ok := m.items[id]; ok {
		item.SetTitle(title)
	}
}

// Start shows the tray icon on the native event loop of the calling thread.
// Call it from the thread that runs the window. stop removes the icon.
func Start(actions Actions, logger *zap.Logger) (*Tray, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	icon, err := iconPNG()
	if err != nil {
		return nil, func() {}, err
	}
	if runtime.GOOS == "windows" {
		icon = wrapICO(icon, iconSize)
	}

	t := New(nil)
	start, end := systray.RunWithExternalLoop(func() {
		systray.SetIcon(icon)
		m := &systrayMenu{items: make(map[string]*systray.MenuItem, len(Items))}
		for _, id := range Items {
			if id == ItemQuit {
				systray.AddSeparator()
			}
			item := systray.AddMenuItem(t.Title(id), "")
			m.items[id] = item
			if fn := actions.lookup(id); fn != nil {
				dialog.Go(func() {
					for range item.ClickedCh {
						fn()
					}
				})
			}
		}
		t.attach(m)
		logger.Debug("tray ready")
	}, nil)
	start()
	return t, end, nil
}
