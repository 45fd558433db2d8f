// Package supervisor spawns the SlimeVR server, pumps its output onto the GUI
// event bus and coordinates its shutdown.
//
// A launcher owns at most one child. Spawn starts it; Run, hosted on its own
// goroutine, forwards every output chunk as a StatusEvent on the
// "server-status" topic until the child's output channel closes. The
// Coordinator asks the child to exit on its stdin and polls the exit flag set
// by the pump.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// JarName is the server artifact passed to the interpreter.
const JarName = "slimevr.jar"

const readBufferSize = 4096

var (
	// ErrAlreadySpawned is returned by Spawn after the first call.
	ErrAlreadySpawned = errors.New("server already spawned")
	// ErrNotRunning is returned by Run when no child was spawned.
	ErrNotRunning = errors.New("server not running")
)

// ServerArgs is the interpreter argument vector the server expects.
func ServerArgs(jar string) []string {
	return []string{"-Xmx512M", "-jar", jar, "run"}
}

// State is the lifecycle state of the supervised child.
type State int32

const (
	StateAbsent State = iota
	StateStarting
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Emitter publishes a payload on a bus topic.
type Emitter interface {
	Emit(topic string, payload any) error
}

// Preparer adjusts a command before it starts; procguard.Guard satisfies it.
type Preparer interface {
	Prepare(cmd *exec.Cmd)
}

// Child is the spawned server process.
type Child struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	events  chan outputEvent
	Started time.Time
}

// PID returns the operating system process id.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return -1
	}
	return c.cmd.Process.Pid
}

// Write sends raw bytes to the child's standard input.
func (c *Child) Write(p []byte) error {
	_, err := c.stdin.Write(p)
	return err
}

// Kill terminates the child immediately. The launcher never calls it during
// shutdown; it exists for tooling and tests.
func (c *Child) Kill() error {
	if c.cmd.Process == nil {
		return ErrNotRunning
	}
	return c.cmd.Process.Kill()
}

// Supervisor owns the child handle and the exit flag.
type Supervisor struct {
	emitter Emitter
	logger  *zap.Logger
	guard   Preparer
	onExit  func(ExitStatus)

	mu    sync.Mutex
	child *Child

	state   atomic.Int32
	exited  atomic.Bool
	pumping atomic.Bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGuard applies p to the command before it starts.
func WithGuard(p Preparer) Option {
	return func(s *Supervisor) {
		s.guard = p
	}
}

// WithExitObserver registers fn to run on the pump goroutine when the child
// terminates.
func WithExitObserver(fn func(ExitStatus)) Option {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// New returns a supervisor that publishes on emitter.
func New(emitter Emitter, opts ...Option) *Supervisor {
	s := &Supervisor{
		emitter: emitter,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the child's lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Exited reports whether the child has announced termination.
func (s *Supervisor) Exited() bool {
	return s.exited.Load()
}

// Child returns the current child, or nil.
func (s *Supervisor) Child() *Child {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child
}

// Spawn starts interpreter in workingDir with args and captures all three
// standard streams.
func (s *Supervisor) Spawn(interpreter, workingDir string, args []string) (*Child, error) {
	if !s.state.CompareAndSwap(int32(StateAbsent), int32(StateStarting)) {
		return nil, ErrAlreadySpawned
	}
	child, err := s.start(interpreter, workingDir, args)
	if err != nil {
		s.state.Store(int32(StateExited))
		return nil, err
	}
	s.mu.Lock()
	s.child = child
	s.mu.Unlock()
	s.logger.Info("server spawned",
		zap.String("interpreter", interpreter),
		zap.String("dir", workingDir),
		zap.Int("pid", child.PID()))
	return child, nil
}

func (s *Supervisor) start(interpreter, workingDir string, args []string) (*Child, error) {
	cmd := exec.Command(interpreter, args...)
	cmd.Dir = workingDir
	if s.guard != nil {
		s.guard.Prepare(cmd)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("start %s: %w", interpreter, err)
	}

	child := &Child{
		cmd:     cmd,
		stdin:   stdin,
		events:  make(chan outputEvent, 64),
		Started: time.Now(),
	}
	var readers sync.WaitGroup
	readers.Add(2)
	go child.read(KindStdout, stdout, &readers)
	go child.read(KindStderr, stderr, &readers)
	go child.wait(&readers)
	return child, nil
}

// read forwards raw chunks as the OS delivers them. No re-chunking happens.
func (c *Child) read(kind Kind, r io.Reader, readers *sync.WaitGroup) {
	defer readers.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.events <- outputEvent{kind: kind, data: append([]byte(nil), buf[:n]...)}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.events <- outputEvent{kind: KindError, err: fmt.Errorf("read %s: %w", kind, err)}
			}
			return
		}
	}
}

// wait reaps the child after both readers drain, so the terminated event is
// always the last output event.
func (c *Child) wait(readers *sync.WaitGroup) {
	readers.Wait()
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		c.events <- outputEvent{kind: KindError, err: fmt.Errorf("wait: %w", err)}
	}
	c.events <- outputEvent{kind: KindTerminated, status: exitStatus(c.cmd.ProcessState)}
	close(c.events)
}

func exitStatus(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := int(ws.Signal())
		return ExitStatus{Signal: &sig}
	}
	code := ps.ExitCode()
	return ExitStatus{Code: &code}
}

// Run pumps the child's output onto the bus until the output channel closes,
// then emits a single [other, "receiver cancelled"] event. It must run on its
// own goroutine; it returns early only if ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	child := s.Child()
	if child == nil {
		return ErrNotRunning
	}
	if !s.pumping.CompareAndSwap(false, true) {
		return errors.New("event pump already running")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-child.events:
			if !ok {
				s.logger.Error("server receiver died")
				s.emit(StatusEvent{Kind: KindOther, Payload: ReceiverCancelled})
				return nil
			}
			s.handle(ev)
		}
	}
}

func (s *Supervisor) handle(ev outputEvent) {
	s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	status := classify(ev)
	switch status.Kind {
	case KindError:
		s.logger.Warn("server stream error", zap.String("error", status.Payload))
	case KindTerminated:
		s.logger.Info("server terminated", zap.String("status", status.Payload))
		if s.onExit != nil {
			s.onExit(ev.status)
		}
	}
	s.emit(status)
	// The flag flips last: a coordinator waking on it finds the observer
	// done and the GUI already told.
	if status.Kind == KindTerminated && s.state.CompareAndSwap(int32(StateRunning), int32(StateExited)) {
		s.exited.Store(true)
	}
}

func (s *Supervisor) emit(ev StatusEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(Topic, ev); err != nil {
		s.logger.Error("failed to emit server status",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
	}
}

// sendExit writes the graceful shutdown command. The boolean is false when no
// child exists.
func (s *Supervisor) sendExit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return false, nil
	}
	return true, s.child.Write([]byte("exit\n"))
}
