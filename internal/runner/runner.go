// Package runner executes import and dispatch runs under the run lock and
// records each finished run in the run history.
package runner

import (
	"context"
	"time"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
	"github.com/ignite/bulletin-sync/internal/pkg/runlock"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
	"github.com/ignite/bulletin-sync/internal/service/contacts"
	"github.com/ignite/bulletin-sync/internal/storage"
)

// Lock names
const (
	ImportLock   = "import"
	DispatchLock = "dispatch"
)

// Importer runs the import path
type Importer interface {
	Import(ctx context.Context, records []contacts.RawRecord) (*contacts.ImportReport, error)
}

// Dispatcher runs the dispatch path
type Dispatcher interface {
	Run(ctx context.Context, channels []domain.Channel) (*bulletin.DispatchReport, error)
}

// History stores finished runs
type History interface {
	SaveRun(ctx context.Context, entry storage.RunEntry) error
}

// Runner serializes runs of the same kind and records their reports.
// Either path may be nil when its collaborator is not configured.
type Runner struct {
	importer   Importer
	dispatcher Dispatcher
	locker     runlock.Locker
	history    History
}

// New creates a Runner. A nil locker runs without locking; a nil history
// keeps no record of runs.
func New(importer Importer, dispatcher Dispatcher, locker runlock.Locker, history History) *Runner {
	return &Runner{importer: importer, dispatcher: dispatcher, locker: locker, history: history}
}

// CanImport reports whether the import path is configured
func (r *Runner) CanImport() bool { return r.importer != nil }

// CanDispatch reports whether the dispatch path is configured
func (r *Runner) CanDispatch() bool { return r.dispatcher != nil }

// Import runs one import. runlock.ErrHeld is returned when another import
// is in progress.
func (r *Runner) Import(ctx context.Context, records []contacts.RawRecord) (*contacts.ImportReport, error) {
	if r.importer == nil {
		return nil, ErrNotConfigured
	}
	var rep *contacts.ImportReport
	err := runlock.WithLock(ctx, r.locker, ImportLock, func(ctx context.Context) error {
		var err error
		rep, err = r.importer.Import(ctx, records)
		return err
	})
	if rep != nil {
		r.record(ctx, storage.KindImport, rep.RunID, rep.StartedAt, rep.FinishedAt, err == nil && rep.TagError == "", rep)
	}
	return rep, err
}

// Dispatch runs one dispatch. The report is returned even when the clone or
// a maintenance step failed.
func (r *Runner) Dispatch(ctx context.Context, channels []domain.Channel) (*bulletin.DispatchReport, error) {
	if r.dispatcher == nil {
		return nil, ErrNotConfigured
	}
	var rep *bulletin.DispatchReport
	err := runlock.WithLock(ctx, r.locker, DispatchLock, func(ctx context.Context) error {
		var err error
		rep, err = r.dispatcher.Run(ctx, channels)
		return err
	})
	if rep != nil {
		r.record(ctx, storage.KindDispatch, rep.RunID, rep.StartedAt, rep.FinishedAt, err == nil && rep.Succeeded(), rep)
	}
	return rep, err
}

func (r *Runner) record(ctx context.Context, kind, runID string, started, finished time.Time, ok bool, rep interface{}) {
	if r.history == nil {
		return
	}
	entry, err := storage.NewRunEntry(kind, runID, started, finished, ok, rep)
	if err == nil {
		err = r.history.SaveRun(ctx, entry)
	}
	if err != nil {
		logger.Warn("could not record run", "kind", kind, "run_id", runID, "error", err)
	}
}
