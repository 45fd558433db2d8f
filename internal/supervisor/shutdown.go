package supervisor

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is how often the coordinator checks the exit flag.
	DefaultPollInterval = time.Second
	// DefaultShutdownTimeout bounds how long the coordinator waits for the
	// server to exit on its own.
	DefaultShutdownTimeout = 10 * time.Second
)

// GeometrySaver persists the window geometry on exit.
type GeometrySaver interface {
	Save() error
}

// Coordinator runs on the window loop's "exit requested" transition. It never
// kills the child: a server that ignores the request is left to the process
// guard.
type Coordinator struct {
	Supervisor   *Supervisor
	Geometry     GeometrySaver
	Logger       *zap.Logger
	PollInterval time.Duration
	Timeout      time.Duration

	// Sleep and Now default to the time package.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// ExitRequested saves the window geometry, asks the server to exit and waits
// for it up to the timeout. It reports whether the server was seen exiting.
func (c *Coordinator) ExitRequested() bool {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Geometry != nil {
		if err := c.Geometry.Save(); err != nil {
			logger.Error("failed to save window state", zap.Error(err))
		} else {
			logger.Info("saved window state")
		}
	}
	if c.Supervisor == nil {
		return false
	}

	present, err := c.Supervisor.sendExit()
	if !present {
		return false
	}
	if err != nil {
		logger.Error("failed to send exit to server", zap.Error(err))
	} else {
		logger.Info("sent exit to server")
	}

	interval, timeout := c.PollInterval, c.Timeout
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	sleep, now := c.Sleep, c.Now
	if sleep == nil {
		sleep = time.Sleep
	}
	if now == nil {
		now = time.Now
	}

	start := now()
	for now().Sub(start) < timeout {
		if c.Supervisor.Exited() {
			return true
		}
		sleep(interval)
	}
	exited := c.Supervisor.Exited()
	if !exited {
		logger.Warn("server did not exit in time", zap.Duration("timeout", timeout))
	}
	return exited
}
