package tray

import "go.uber.org/zap"

// Start reports ErrUnavailable: the macOS status bar needs an AppKit run
// loop on the main thread, which the browser host does not provide.
func Start(Actions, *zap.Logger) (*Tray, func(), error) {
	return nil, func() {}, ErrUnavailable
}
