// Package dialog routes unrecoverable faults to native modal dialogs.
package dialog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ncruces/zenity"
	"github.com/pkg/browser"
)

// Title is shown on every dialog.
const Title = "SlimeVR"

// Documentation links offered by the recoverable webview dialogs.
const (
	WebviewMissingURL = "https://docs.slimevr.dev/server-setup/installing-and-connecting.html#install-the-latest-slimevr-installer"
	WebviewFaultyURL  = "https://docs.slimevr.dev/common-issues.html#webview2-is-missing--slimevr-gui-crashes-immediately--panicked-at--webview2error"
)

// Presenter shows modal dialogs.
type Presenter interface {
	// Error shows a message with a single OK button.
	Error(text string) error
	// Confirm shows an OK/Cancel error dialog and reports whether OK was chosen.
	Confirm(text string) (bool, error)
}

type zenityPresenter struct{}

func (zenityPresenter) Error(text string) error {
	return zenity.Error(text, zenity.Title(Title), zenity.ErrorIcon)
}

func (zenityPresenter) Confirm(text string) (bool, error) {
	err := zenity.Question(text,
		zenity.Title(Title),
		zenity.ErrorIcon,
		zenity.OKLabel("Ok"),
		zenity.CancelLabel("Cancel"))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, zenity.ErrCanceled):
		return false, nil
	default:
		return false, err
	}
}

var (
	mu        sync.Mutex
	presenter Presenter = zenityPresenter{}
	openURL             = browser.OpenURL
)

// SetPresenter replaces the dialog backend and returns a func restoring the
// previous one.
func SetPresenter(p Presenter) (restore func()) {
	mu.Lock()
	prev := presenter
	presenter = p
	mu.Unlock()
	return func() { SetPresenter(prev) }
}

// SetURLOpener replaces the browser launcher and returns a restore func.
func SetURLOpener(fn func(string) error) (restore func()) {
	mu.Lock()
	prev := openURL
	openURL = fn
	mu.Unlock()
	return func() { SetURLOpener(prev) }
}

func current() (Presenter, func(string) error) {
	mu.Lock()
	defer mu.Unlock()
	return presenter, openURL
}

// ShowError presents text in a native error dialog. Failures to show the
// dialog are swallowed; there is nowhere left to report them.
func ShowError(text string) {
	p, _ := current()
	_ = p.Error(text)
}

// WebviewMissing tells the user the webview runtime is not installed and
// offers the installer documentation.
func WebviewMissing() {
	offerDocs("Couldn't find a compatible webview runtime installed. You can install it with the SlimeVR installer", WebviewMissingURL)
}

// WebviewFaulty tells the user the webview runtime failed to create a window
// and offers the troubleshooting guide.
func WebviewFaulty() {
	offerDocs("You seem to have a faulty installation of the webview runtime. You can check a guide on how to fix that in the docs!", WebviewFaultyURL)
}

// MissingJava reports that no interpreter satisfies minimum.
func MissingJava(minimum int) {
	ShowError(fmt.Sprintf("Couldn't find a compatible Java version, please download Java %d or higher", minimum))
}

func offerDocs(text, url string) {
	p, open := current()
	ok, err := p.Confirm(text)
	if err != nil || !ok {
		return
	}
	_ = open(url)
}
