package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := New(nil)
	var got []any
	_, err := bus.Subscribe("server-status", func(topic string, payload any) {
		require.Equal(t, "server-status", topic)
		got = append(got, payload)
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Emit("server-status", i))
	}
	require.Equal(t, []any{0, 1, 2, 3, 4}, got)
}

func TestBusEmitWithoutSubscribers(t *testing.T) {
	bus := New(nil)
	require.NoError(t, bus.Emit("nobody", "x"))
	require.ErrorIs(t, bus.Emit("", "x"), ErrEmptyTopic)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New(nil)
	calls := 0
	sub, err := bus.Subscribe("t", func(string, any) { calls++ })
	require.NoError(t, err)
	require.Equal(t, 1, bus.Subscribers("t"))

	bus.Unsubscribe(sub)
	require.Equal(t, 0, bus.Subscribers("t"))
	require.NoError(t, bus.Emit("t", nil))
	require.Zero(t, calls)
}

func TestBusHandlerPanicPropagates(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := New(zap.New(core))
	var after bool
	_, err := bus.Subscribe("server-status", func(string, any) { panic("bridge exploded") })
	require.NoError(t, err)
	_, err = bus.Subscribe("server-status", func(string, any) { after = true })
	require.NoError(t, err)

	require.PanicsWithValue(t, "bridge exploded", func() {
		_ = bus.Emit("server-status", nil)
	})
	require.False(t, after)
	entries := logs.FilterMessage("event handler panicked").All()
	require.Len(t, entries, 1)
	require.Equal(t, LoggerName, entries[0].LoggerName)
}

func TestBusUsableAfterHandlerPanic(t *testing.T) {
	bus := New(nil)
	_, err := bus.Subscribe("t", func(string, any) { panic("boom") })
	require.NoError(t, err)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_ = bus.Emit("t", nil)
	}()
	require.Equal(t, "boom", recovered)

	// The bus stays usable after a panic.
	_, err = bus.Subscribe("u", func(string, any) {})
	require.NoError(t, err)
	require.NoError(t, bus.Emit("u", nil))
}

func TestBusSubscribeValidation(t *testing.T) {
	bus := New(nil)
	_, err := bus.Subscribe("", func(string, any) {})
	require.ErrorIs(t, err, ErrEmptyTopic)
	_, err = bus.Subscribe("t", nil)
	require.Error(t, err)
}
