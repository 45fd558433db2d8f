package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/slimevr/slimevr-launcher/internal/eventbus"
)

type captureBus struct {
	topics  []string
	records []Record
}

func (c *captureBus) Emit(topic string, payload any) error {
	c.topics = append(c.topics, topic)
	c.records = append(c.records, payload.(Record))
	return nil
}

func TestNewWritesAllSinks(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	bus := &captureBus{}

	logger, closeFn, err := New(Options{Dir: dir, Stdout: &stdout, Bus: bus, Level: zapcore.InfoLevel})
	require.NoError(t, err)
	logger.Info("server found", zap.String("path", "/opt/slimevr"))
	logger.Debug("filtered out")
	require.NoError(t, closeFn())

	require.Contains(t, stdout.String(), "server found")
	require.NotContains(t, stdout.String(), "filtered out")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"server found"`)
	require.Contains(t, string(data), `"path":"/opt/slimevr"`)

	require.Equal(t, []string{Topic}, bus.topics)
	require.Equal(t, 3, bus.records[0].Level)
	require.Contains(t, bus.records[0].Message, "server found")
	require.Contains(t, bus.records[0].Message, "/opt/slimevr")
}

func TestNewWithoutFile(t *testing.T) {
	var stdout bytes.Buffer
	logger, closeFn, err := New(Options{Stdout: &stdout})
	require.NoError(t, err)
	logger.Warn("careful")
	require.NoError(t, closeFn())
	require.Contains(t, stdout.String(), "careful")
}

func TestBusCoreWithFields(t *testing.T) {
	bus := &captureBus{}
	logger := zap.New(NewBusCore(bus, zapcore.DebugLevel)).With(zap.Int("pid", 42))
	logger.Error("server terminated")
	require.Len(t, bus.records, 1)
	require.Equal(t, 5, bus.records[0].Level)
	require.Contains(t, bus.records[0].Message, "42")
}

func TestLevelNumber(t *testing.T) {
	require.Equal(t, 2, levelNumber(zapcore.DebugLevel))
	require.Equal(t, 3, levelNumber(zapcore.InfoLevel))
	require.Equal(t, 4, levelNumber(zapcore.WarnLevel))
	require.Equal(t, 5, levelNumber(zapcore.DPanicLevel))
}

func TestBusCoreSkipsEventBusLogger(t *testing.T) {
	bus := &captureBus{}
	logger := zap.New(NewBusCore(bus, zapcore.DebugLevel))
	logger.Named(eventbus.LoggerName).Error("event handler panicked")
	logger.Named("supervisor").Info("kept")
	require.Len(t, bus.records, 1)
	require.Contains(t, bus.records[0].Message, "kept")
}
