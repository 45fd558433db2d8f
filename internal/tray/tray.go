// Package tray keeps the launcher in the system notification area. The GUI
// owns the wording: it pushes translated menu titles and a status line, and
// the tray replays them onto the native menu once it is ready.
package tray

import (
	"errors"
	"sort"
	"sync"
)

// Menu item ids. UpdateTranslations keys titles by these.
const (
	ItemShow = "show"
	ItemQuit = "quit"
)

// ErrUnavailable is returned by Start where no tray backend exists.
var ErrUnavailable = errors.New("system tray unavailable")

// Items lists the menu items in display order.
var Items = []string{ItemShow, ItemQuit}

const defaultText = "SlimeVR"

var defaultTitles = map[string]string{
	ItemShow: "Show",
	ItemQuit: "Quit",
}

// Actions run when menu items are clicked.
type Actions struct {
	Show func()
	Quit func()
}

func (a Actions) lookup(id string) func() {
	switch id {
	case ItemShow:
		return a.Show
	case ItemQuit:
		return a.Quit
	}
	return nil
}

// Menu is the native tray surface.
type Menu interface {
	SetTooltip(text string)
	SetItemTitle(id, title string)
}

// Tray tracks what the tray shows. A nil *Tray accepts and drops updates, so
// the GUI's calls succeed on platforms without a tray.
type Tray struct {
	mu     sync.Mutex
	menu   Menu
	titles map[string]string
	text   string
}

// New returns a tray drawing on menu. menu may be nil until the backend is
// ready; see attach.
func New(menu Menu) *Tray {
	t := &Tray{titles: make(map[string]string, len(defaultTitles)), text: defaultText}
	for id, title := range defaultTitles {
		t.titles[id] = title
	}
	t.attach(menu)
	return t
}

// attach binds menu and replays the current texts onto it.
func (t *Tray) attach(menu Menu) {
	if menu == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.menu = menu
	menu.SetTooltip(t.text)
	for _, id := range Items {
		menu.SetItemTitle(id, t.titles[id])
	}
}

// UpdateTranslations replaces menu titles. Unknown ids and empty titles are
// ignored.
func (t *Tray) UpdateTranslations(titles map[string]string) error {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(titles))
	for id := range titles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		title := titles[id]
		if _, ok := defaultTitles[id]; !ok || title == "" {
			continue
		}
		t.titles[id] = title
		if t.menu != nil {
			t.menu.SetItemTitle(id, title)
		}
	}
	return nil
}

// UpdateText sets the tooltip. An empty text restores the default.
func (t *Tray) UpdateText(text string) error {
	if t == nil {
		return nil
	}
	if text == "" {
		text = defaultText
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
	if t.menu != nil {
		t.menu.SetTooltip(text)
	}
	return nil
}

// Title returns the current title of item id.
func (t *Tray) Title(id string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.titles[id]
}

// Text returns the current tooltip.
func (t *Tray) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}
