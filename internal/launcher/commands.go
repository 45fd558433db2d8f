package launcher

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/slimevr/slimevr-launcher/internal/journal"
	"github.com/slimevr/slimevr-launcher/internal/supervisor"
	"github.com/slimevr/slimevr-launcher/internal/tray"
	"github.com/slimevr/slimevr-launcher/internal/windowstate"
)

// Command names bound into the page.
const (
	CommandDummy              = "dummy_command"
	CommandUpdateWindowState  = "update_window_state"
	CommandServerRuns         = "server_runs"
	CommandUpdateTranslations = "update_translations"
	CommandUpdateTrayText     = "update_tray_text"
)

var errNoWindow = errors.New("window closed")

func (l *Launcher) commands(geometry *windowstate.Store, runs *runRecorder, icon *tray.Tray) map[string]any {
	return map[string]any{
		CommandDummy: func() {},
		CommandUpdateWindowState: func() error {
			l.winMu.Lock()
			w := l.win
			l.winMu.Unlock()
			if w == nil {
				return errNoWindow
			}
			b, err := w.Bounds()
			if err != nil {
				return err
			}
			geometry.Update(mergeBounds(geometry.State(), b))
			return nil
		},
		CommandServerRuns: func(limit int) ([]journal.Run, error) {
			return runs.recent(limit)
		},
		CommandUpdateTranslations: icon.UpdateTranslations,
		CommandUpdateTrayText:     icon.UpdateText,
	}
}

// runRecorder writes the journal for the current session. Every method is
// safe on a recorder whose store failed to open; failures are logged and
// never reach the server.
type runRecorder struct {
	store  *journal.Store
	logger *zap.Logger

	mu sync.Mutex
	id string
}

func (l *Launcher) openJournal() *runRecorder {
	r := &runRecorder{logger: l.logger.Named("journal")}
	store, err := journal.Open(l.cfg.JournalPath())
	if err != nil {
		r.logger.Warn("run journal unavailable", zap.Error(err))
		return r
	}
	if n, err := store.Prune(journalKeep); err != nil {
		r.logger.Warn("failed to prune run journal", zap.Error(err))
	} else if n > 0 {
		r.logger.Debug("pruned run journal", zap.Int64("removed", n))
	}
	r.store = store
	return r
}

func (r *runRecorder) begin(launchPath, interpreter string, child *supervisor.Child) {
	if r.store == nil {
		return
	}
	run, err := r.store.Begin(journal.Run{
		LaunchPath:  launchPath,
		Interpreter: interpreter,
		PID:         child.PID(),
		StartedAt:   child.Started,
	})
	if err != nil {
		r.logger.Warn("failed to record server run", zap.Error(err))
		return
	}
	r.mu.Lock()
	r.id = run.ID
	r.mu.Unlock()
}

// finish is the supervisor's exit observer.
func (r *runRecorder) finish(status supervisor.ExitStatus) {
	r.mu.Lock()
	id := r.id
	r.mu.Unlock()
	if r.store == nil || id == "" {
		return
	}
	if err := r.store.Finish(id, status.Code, time.Now()); err != nil {
		r.logger.Warn("failed to finish server run", zap.String("run", id), zap.Error(err))
	}
}

func (r *runRecorder) recent(limit int) ([]journal.Run, error) {
	if r.store == nil {
		return []journal.Run{}, nil
	}
	return r.store.Recent(limit)
}

func (r *runRecorder) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close run journal", zap.Error(err))
	}
}
