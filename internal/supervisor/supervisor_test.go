package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the server when the
// test binary is re-executed with GO_WANT_HELPER_PROCESS=1.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	mode := ""
	if len(args) > 1 {
		mode = args[1]
	}
	switch mode {
	case "server":
		os.Stdout.WriteString("hello\n")
		os.Stderr.Write([]byte{0xFF, 0xFE})
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if scanner.Text() == "exit" {
				os.Stdout.WriteString("bye\n")
				os.Exit(0)
			}
		}
		os.Exit(0)
	case "stubborn":
		os.Stdout.WriteString("ignoring you\n")
		time.Sleep(time.Minute)
		os.Exit(0)
	case "crash":
		os.Stderr.WriteString("fatal\n")
		os.Exit(3)
	}
	os.Exit(2)
}

func helperArgs(mode string) []string {
	return []string{"-test.run=TestHelperProcess", "--", mode}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []StatusEvent
	done   chan struct{}
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{done: make(chan struct{})}
}

func (r *recordingEmitter) Emit(topic string, payload any) error {
	if topic != Topic {
		return errors.New("unexpected topic " + topic)
	}
	ev := payload.(StatusEvent)
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if ev.Kind == KindOther && ev.Payload == ReceiverCancelled {
		close(r.done)
	}
	return nil
}

func (r *recordingEmitter) snapshot() []StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StatusEvent(nil), r.events...)
}

func (r *recordingEmitter) wait(t *testing.T) []StatusEvent {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for receiver cancelled; got %v", r.snapshot())
	}
	return r.snapshot()
}

func spawnHelper(t *testing.T, s *Supervisor, mode string) *Child {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	child, err := s.Spawn(os.Args[0], t.TempDir(), helperArgs(mode))
	require.NoError(t, err)
	t.Cleanup(func() { _ = child.Kill() })
	return child
}

func TestServerArgs(t *testing.T) {
	require.Equal(t, []string{"-Xmx512M", "-jar", "slimevr.jar", "run"}, ServerArgs(JarName))
}

func TestSupervisorHappyPath(t *testing.T) {
	emitter := newRecordingEmitter()
	var observed []ExitStatus
	s := New(emitter, WithExitObserver(func(st ExitStatus) { observed = append(observed, st) }))
	require.Equal(t, StateAbsent, s.State())

	spawnHelper(t, s, "server")
	require.Equal(t, StateStarting, s.State())
	go func() { _ = s.Run(context.Background()) }()

	coord := &Coordinator{Supervisor: s, PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second}
	require.Eventually(t, func() bool {
		for _, ev := range emitter.snapshot() {
			if ev.Kind == KindStderr {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	require.True(t, coord.ExitRequested())

	events := emitter.wait(t)
	require.True(t, s.Exited())
	require.Equal(t, StateExited, s.State())

	var stdout strings.Builder
	terminated := 0
	for i, ev := range events {
		switch ev.Kind {
		case KindStdout:
			require.Zero(t, terminated, "stdout after terminated")
			stdout.WriteString(ev.Payload)
		case KindStderr:
			require.Equal(t, "", ev.Payload, "invalid UTF-8 decodes to empty")
		case KindTerminated:
			terminated++
			var st ExitStatus
			require.NoError(t, json.Unmarshal([]byte(ev.Payload), &st))
			require.NotNil(t, st.Code)
			require.Equal(t, 0, *st.Code)
			require.Equal(t, len(events)-2, i)
		}
	}
	require.Equal(t, 1, terminated)
	require.Equal(t, "hello\nbye\n", stdout.String())
	require.Equal(t, StatusEvent{Kind: KindOther, Payload: ReceiverCancelled}, events[len(events)-1])
	require.Len(t, observed, 1)
}

func TestSupervisorCrashReportsExitCode(t *testing.T) {
	emitter := newRecordingEmitter()
	s := New(emitter)
	spawnHelper(t, s, "crash")
	require.NoError(t, s.Run(context.Background()))

	events := emitter.wait(t)
	require.True(t, s.Exited())
	term := events[len(events)-2]
	require.Equal(t, KindTerminated, term.Kind)
	require.JSONEq(t, `{"code":3,"signal":null}`, term.Payload)
}

func TestSupervisorSpawnOnce(t *testing.T) {
	s := New(newRecordingEmitter())
	spawnHelper(t, s, "crash")
	_, err := s.Spawn(os.Args[0], t.TempDir(), helperArgs("crash"))
	require.ErrorIs(t, err, ErrAlreadySpawned)
	go func() { _ = s.Run(context.Background()) }()
}

func TestSupervisorSpawnFailure(t *testing.T) {
	s := New(newRecordingEmitter())
	_, err := s.Spawn(filepath.Join(t.TempDir(), "no-such-java"), t.TempDir(), ServerArgs(JarName))
	require.Error(t, err)
	require.Equal(t, StateExited, s.State())
	require.False(t, s.Exited(), "spawn failure does not set the exit flag")
	require.Nil(t, s.Child())
	require.ErrorIs(t, s.Run(context.Background()), ErrNotRunning)
}

func TestRunWithoutChild(t *testing.T) {
	s := New(nil)
	require.ErrorIs(t, s.Run(context.Background()), ErrNotRunning)
}

func TestStatusEventJSON(t *testing.T) {
	data, err := json.Marshal(StatusEvent{Kind: KindStdout, Payload: "line"})
	require.NoError(t, err)
	require.JSONEq(t, `["stdout","line"]`, string(data))

	var ev StatusEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, StatusEvent{Kind: KindStdout, Payload: "line"}, ev)
}

func TestClassify(t *testing.T) {
	require.Equal(t, StatusEvent{Kind: KindStderr, Payload: ""},
		classify(outputEvent{kind: KindStderr, data: []byte{0xFF, 0xFE}}))
	require.Equal(t, StatusEvent{Kind: KindStdout, Payload: "ok"},
		classify(outputEvent{kind: KindStdout, data: []byte("ok")}))
	require.Equal(t, StatusEvent{Kind: KindError, Payload: "boom"},
		classify(outputEvent{kind: KindError, err: errors.New("boom")}))
	require.Equal(t, StatusEvent{Kind: KindOther},
		classify(outputEvent{kind: "mystery"}))
}
