// Package launcher wires the launcher's parts together: it finds the server,
// picks a Java runtime, opens the GUI window, supervises the server process
// and shuts everything down in order when the window closes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/slimevr/slimevr-launcher/internal/dialog"
	"github.com/slimevr/slimevr-launcher/internal/eventbus"
	"github.com/slimevr/slimevr-launcher/internal/instance"
	"github.com/slimevr/slimevr-launcher/internal/javaprobe"
	"github.com/slimevr/slimevr-launcher/internal/launchpath"
	"github.com/slimevr/slimevr-launcher/internal/logging"
	"github.com/slimevr/slimevr-launcher/internal/procguard"
	"github.com/slimevr/slimevr-launcher/internal/supervisor"
	"github.com/slimevr/slimevr-launcher/internal/tray"
	"github.com/slimevr/slimevr-launcher/internal/webview"
	"github.com/slimevr/slimevr-launcher/internal/windowstate"
)

// ErrSpawn is returned after the server failed to start and the user was told.
var ErrSpawn = errors.New("spawn server")

const (
	windowTitle = "SlimeVR"
	journalKeep = 100
)

// PathResolver finds the server payload and its bundled runtime.
type PathResolver interface {
	Resolve(opts launchpath.Options) (string, bool)
	BundledJava(dir string) (string, bool)
}

// Deps are the launcher's collaborators. Zero fields get the real
// implementations.
type Deps struct {
	Resolver   PathResolver
	Probe      func(ctx context.Context) []javaprobe.Installation
	Available  func() bool
	OpenWindow func(opts webview.Options) (webview.Window, error)
	Guard      func() (*procguard.Guard, error)
	ServerArgs func(jar string) []string
	Tray       func(actions tray.Actions, logger *zap.Logger) (*tray.Tray, func(), error)
	Stdout     io.Writer
}

func (d *Deps) fill() {
	if d.Resolver == nil {
		d.Resolver = launchpath.NewResolver()
	}
	if d.Probe == nil {
		d.Probe = javaprobe.Probe
	}
	if d.Available == nil {
		d.Available = webview.Available
	}
	if d.OpenWindow == nil {
		d.OpenWindow = webview.Open
	}
	if d.Guard == nil {
		d.Guard = procguard.Install
	}
	if d.ServerArgs == nil {
		d.ServerArgs = supervisor.ServerArgs
	}
	if d.Tray == nil {
		d.Tray = tray.Start
	}
}

// Launcher runs one launcher session.
type Launcher struct {
	cfg  Config
	deps Deps

	logger *zap.Logger
	bus    *eventbus.Bus

	winMu sync.Mutex
	win   webview.Window
}

// New validates cfg and returns a launcher.
func New(cfg Config, deps Deps) (*Launcher, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	deps.fill()
	return &Launcher{cfg: cfg, deps: deps, logger: zap.NewNop()}, nil
}

// Config returns the normalized configuration.
func (l *Launcher) Config() Config { return l.cfg }

// Run executes the session and returns once the window has closed and the
// server has been asked to exit. Paths that end in a dialog return nil.
func (l *Launcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The guard must exist before any goroutine or child does.
	guard, guardErr := l.deps.Guard()

	l.bus = eventbus.New(nil)
	closeLog := l.setupLogging()
	defer closeLog()
	logger := l.logger
	if guardErr != nil {
		logger.Warn("process guard unavailable, server may outlive the launcher", zap.Error(guardErr))
	}

	primary, err := instance.Acquire(ctx, l.cfg.InstanceAddr, l.showWindow,
		instance.WithLogger(logger.Named("instance")))
	if errors.Is(err, instance.ErrAlreadyRunning) {
		logger.Info("another launcher is running, handing over")
		return nil
	}
	if err != nil {
		logger.Warn("single-instance guard unavailable", zap.Error(err))
	}
	defer primary.Close()

	launchPath, found := l.deps.Resolver.Resolve(launchpath.Options{Override: l.cfg.LaunchFromPath})
	var javaBin string
	if found {
		logger.Info("server found", zap.String("path", launchPath))
		bundled, _ := l.deps.Resolver.BundledJava(launchPath)
		var installs []javaprobe.Installation
		if bundled == "" {
			installs = javaprobe.Filter(l.deps.Probe(ctx), javaprobe.MinimumVersion)
		}
		javaBin, err = javaprobe.Select(bundled, installs)
		if errors.Is(err, javaprobe.ErrNoCompatibleJava) {
			logger.Error("no compatible java found", zap.Int("minimum", javaprobe.MinimumVersion))
			dialog.MissingJava(javaprobe.MinimumVersion)
			return nil
		}
		logger.Info("using java binary", zap.String("path", javaBin))
	} else {
		logger.Info("no server found, the server will not be started")
	}

	if !l.deps.Available() {
		logger.Error("webview runtime missing")
		dialog.WebviewMissing()
		return nil
	}

	url, stopAssets, err := l.guiURL()
	if err != nil {
		logger.Error("gui unavailable", zap.Error(err))
		dialog.ShowError(err.Error())
		return nil
	}
	defer stopAssets()

	geometry := windowstate.Open(l.cfg.WindowStateDir(), logger.Named("windowstate"))
	win, err := l.deps.OpenWindow(l.windowOptions(url, geometry))
	if err != nil {
		logger.Error("failed to open window", zap.Error(err))
		switch {
		case errors.Is(err, webview.ErrUnavailable):
			dialog.WebviewMissing()
		case errors.Is(err, webview.ErrCreate):
			dialog.WebviewFaulty()
		default:
			dialog.ShowError(err.Error())
		}
		return nil
	}
	l.setWindow(win)
	// An interrupt from the terminal closes the window like the user would.
	stopClose := context.AfterFunc(ctx, win.Close)
	defer stopClose()
	geometry.Track(func() (windowstate.State, error) {
		b, err := win.Bounds()
		if err != nil {
			return windowstate.State{}, err
		}
		return mergeBounds(geometry.State(), b), nil
	})

	icon, stopTray, err := l.deps.Tray(tray.Actions{Show: l.focusWindow, Quit: win.Close}, logger.Named("tray"))
	if err != nil {
		logger.Info("system tray unavailable", zap.Error(err))
	}
	defer stopTray()

	runs := l.openJournal()
	defer runs.Close()

	bridge := webview.NewBridge(win, logger)
	defer bridge.Close()
	if err := bridge.Forward(l.bus, supervisor.Topic, logging.Topic); err != nil {
		logger.Error("failed to bridge events", zap.Error(err))
	}
	if err := webview.BindAll(win, l.commands(geometry, runs, icon)); err != nil {
		logger.Error("failed to bind commands", zap.Error(err))
	}

	sup := supervisor.New(l.bus,
		supervisor.WithLogger(logger.Named("supervisor")),
		supervisor.WithGuard(guard),
		supervisor.WithExitObserver(runs.finish))
	if found {
		child, err := sup.Spawn(javaBin, launchPath, l.deps.ServerArgs(launchpath.JarName))
		if err != nil {
			logger.Error("failed to spawn server", zap.Error(err))
			dialog.ShowError(fmt.Sprintf("Failed to start the SlimeVR server: %v", err))
			win.Close()
			return fmt.Errorf("%w: %v", ErrSpawn, err)
		}
		runs.begin(launchPath, javaBin, child)
		// The pump outlives an interrupt: it must still see terminated after
		// the coordinator has asked the server to exit.
		pumpCtx := context.WithoutCancel(ctx)
		dialog.Go(func() {
			if err := sup.Run(pumpCtx); err != nil {
				logger.Error("server event pump stopped", zap.Error(err))
			}
		})
	}

	win.Run()
	l.setWindow(nil)
	logger.Info("window closed, shutting down")

	coordinator := supervisor.Coordinator{
		Supervisor:   sup,
		Geometry:     geometry,
		Logger:       logger.Named("shutdown"),
		PollInterval: l.cfg.PollInterval,
		Timeout:      l.cfg.ShutdownTimeout,
	}
	if exited := coordinator.ExitRequested(); found && !exited {
		logger.Warn("server did not exit in time", zap.Duration("timeout", l.cfg.ShutdownTimeout))
	}
	return nil
}

// setupLogging installs the three-sink logger. A log directory that cannot
// be created costs only the file sink.
func (l *Launcher) setupLogging() func() {
	level := zapcore.InfoLevel
	if l.cfg.Debug {
		level = zapcore.DebugLevel
	}
	opts := logging.Options{Dir: l.cfg.LogDir, Stdout: l.deps.Stdout, Bus: l.bus, Level: level}
	logger, closeFn, err := logging.New(opts)
	if err != nil {
		opts.Dir = ""
		logger, closeFn, _ = logging.New(opts)
		logger.Warn("file logging disabled", zap.String("dir", l.cfg.LogDir), zap.Error(err))
	}
	l.logger = logger
	l.bus.SetLogger(logger)
	return func() { _ = closeFn() }
}

func (l *Launcher) guiURL() (string, func(), error) {
	if l.cfg.DevURL != "" {
		l.logger.Info("using gui dev server", zap.String("url", l.cfg.DevURL))
		return l.cfg.DevURL, func() {}, nil
	}
	assets := &webview.AssetServer{Dir: l.cfg.AssetsDir, Logger: l.logger.Named("assets")}
	url, err := assets.Start(webview.DefaultAssetAddr)
	if err != nil {
		return "", nil, err
	}
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := assets.Shutdown(ctx); err != nil {
			l.logger.Warn("asset server shutdown", zap.Error(err))
		}
	}
	return url, stop, nil
}

func (l *Launcher) windowOptions(url string, geometry *windowstate.Store) webview.Options {
	opts := webview.Options{
		URL:        url,
		Title:      windowTitle,
		Width:      windowstate.DefaultWidth,
		Height:     windowstate.DefaultHeight,
		MinWidth:   windowstate.MinWidth,
		MinHeight:  windowstate.MinHeight,
		ProfileDir: l.cfg.ProfileDir(),
		Debug:      l.cfg.Debug,
	}
	if geometry.IsOld() {
		return opts
	}
	state := geometry.State()
	opts.Width, opts.Height = state.Width, state.Height
	if state.Positioned || state.Maximized {
		b := toBounds(state)
		opts.Restore = &b
	}
	return opts
}

func (l *Launcher) setWindow(w webview.Window) {
	l.winMu.Lock()
	l.win = w
	l.winMu.Unlock()
}

// showWindow answers a second launcher's request.
func (l *Launcher) showWindow(instance.ShowParams) {
	l.focusWindow()
}

func (l *Launcher) focusWindow() {
	l.winMu.Lock()
	w := l.win
	l.winMu.Unlock()
	if w != nil {
		w.Focus()
	}
}

func toBounds(s windowstate.State) webview.Bounds {
	return webview.Bounds{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height, Maximized: s.Maximized}
}

func fromBounds(b webview.Bounds) windowstate.State {
	return windowstate.State{
		Version:    windowstate.Version,
		Width:      b.Width,
		Height:     b.Height,
		X:          b.X,
		Y:          b.Y,
		Positioned: true,
		Maximized:  b.Maximized,
	}
}

// mergeBounds folds live bounds into prev. A maximized window keeps the last
// restored size and position and only sets the flag, so leaving the maximized
// state next session lands on a real geometry.
func mergeBounds(prev windowstate.State, b webview.Bounds) windowstate.State {
	if !b.Maximized {
		return fromBounds(b)
	}
	prev.Version = windowstate.Version
	prev.Maximized = true
	return prev
}
