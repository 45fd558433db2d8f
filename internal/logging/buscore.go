package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/slimevr/slimevr-launcher/internal/eventbus"
)

// Topic carries log records to the GUI console.
const Topic = "log://log"

// Record is the payload published on Topic. Level follows the GUI's numeric
// scale: 1 trace, 2 debug, 3 info, 4 warn, 5 error.
type Record struct {
	Level   int    `json:"level"`
	Message string `json:"message"`
}

type busCore struct {
	zapcore.LevelEnabler
	bus    Emitter
	enc    zapcore.Encoder
	fields []zapcore.Field
}

// NewBusCore returns a core that publishes every enabled entry on Topic.
func NewBusCore(bus Emitter, enabler zapcore.LevelEnabler) zapcore.Core {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		NameKey:        "logger",
		LineEnding:     "",
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return &busCore{
		LevelEnabler: enabler,
		bus:          bus,
		enc:          zapcore.NewConsoleEncoder(cfg),
	}
}

func (c *busCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *busCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	// Records about the bus itself would loop straight back into it.
	if strings.HasPrefix(ent.LoggerName, eventbus.LoggerName) {
		return ce
	}
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *busCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field(nil), c.fields...), fields...)
	buf, err := c.enc.EncodeEntry(ent, all)
	if err != nil {
		return err
	}
	msg := strings.TrimSpace(buf.String())
	buf.Free()
	return c.bus.Emit(Topic, Record{Level: levelNumber(ent.Level), Message: msg})
}

func (c *busCore) Sync() error { return nil }

func levelNumber(l zapcore.Level) int {
	switch {
	case l >= zapcore.ErrorLevel:
		return 5
	case l == zapcore.WarnLevel:
		return 4
	case l == zapcore.InfoLevel:
		return 3
	default:
		return 2
	}
}
