// Package logging builds the launcher's zap logger. Records fan out to three
// sinks: standard output, a rotating file in the user's log directory and the
// GUI console over the event bus.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the stable base name of the log file.
const FileName = "launcher.log"

// Emitter publishes a payload on a bus topic.
type Emitter interface {
	Emit(topic string, payload any) error
}

// Options configures New.
type Options struct {
	// Dir is the log directory. Empty disables the file sink.
	Dir string
	// Stdout receives console-encoded records. Defaults to os.Stdout.
	Stdout io.Writer
	// Bus receives records for the GUI console. Nil disables the sink.
	Bus   Emitter
	Level zapcore.Level
}

// New builds the logger. The returned close func flushes the logger and
// closes the log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	level := zap.NewAtomicLevelAt(opts.Level)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(stdout), level),
	}

	var file *lumberjack.Logger
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    10,
			MaxBackups: 5,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "timestamp"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	if opts.Bus != nil {
		cores = append(cores, NewBusCore(opts.Bus, level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}
