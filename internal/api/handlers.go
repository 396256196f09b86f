package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/httputil"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
	"github.com/ignite/bulletin-sync/internal/pkg/runlock"
	"github.com/ignite/bulletin-sync/internal/report"
	"github.com/ignite/bulletin-sync/internal/runner"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
	"github.com/ignite/bulletin-sync/internal/service/contacts"
	"github.com/ignite/bulletin-sync/internal/storage"
)

// Runner executes import and dispatch runs
type Runner interface {
	CanImport() bool
	CanDispatch() bool
	Import(ctx context.Context, records []contacts.RawRecord) (*contacts.ImportReport, error)
	Dispatch(ctx context.Context, channels []domain.Channel) (*bulletin.DispatchReport, error)
}

// RunHistory lists finished runs
type RunHistory interface {
	RecentRuns(kind string, limit int) []storage.RunEntry
}

// RecordLoader reads a record file from a path or s3:// URI
type RecordLoader interface {
	LoadRecords(ctx context.Context, source string) ([]map[string]any, error)
}

// Handlers contains the HTTP handlers for the trigger API
type Handlers struct {
	runner   Runner
	history  RunHistory
	loader   RecordLoader
	renderer *report.Renderer
}

// NewHandlers creates the handlers. history and loader may be nil.
func NewHandlers(r Runner, history RunHistory, loader RecordLoader) *Handlers {
	return &Handlers{
		runner:   r,
		history:  history,
		loader:   loader,
		renderer: report.NewRenderer(),
	}
}

// RunResponse wraps a run report with its text summary
type RunResponse struct {
	Report  interface{} `json:"report"`
	Summary string      `json:"summary,omitempty"`
}

// ImportRequest names a record file to import. The import endpoint also
// accepts a bare JSON array of records.
type ImportRequest struct {
	Source string `json:"source"`
}

// DispatchRequest selects the channels to send on; empty means the
// configured default
type DispatchRequest struct {
	Channels []string `json:"channels"`
}

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"import":    h.runner.CanImport(),
		"dispatch":  h.runner.CanDispatch(),
	})
}

// HandleImport runs the import path over the posted records
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !httputil.Decode(w, r, &body) {
		return
	}

	records, ok := h.importRecords(w, r, body)
	if !ok {
		return
	}

	// A client that disconnects does not abort the run
	rep, err := h.runner.Import(context.WithoutCancel(r.Context()), records)
	if err != nil {
		h.respondRunError(w, err, nil)
		return
	}

	summary, err := h.renderer.Import(rep)
	if err != nil {
		logger.Warn("rendering import summary failed", "error", err)
	}
	httputil.OK(w, RunResponse{Report: rep, Summary: summary})
}

func (h *Handlers) importRecords(w http.ResponseWriter, r *http.Request, body json.RawMessage) ([]contacts.RawRecord, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []contacts.RawRecord
		if err := decodeNumbers(trimmed, &records); err != nil {
			httputil.BadRequest(w, "records must be a JSON array of objects")
			return nil, false
		}
		return records, true
	}

	var req ImportRequest
	if err := decodeNumbers(trimmed, &req); err != nil || req.Source == "" {
		httputil.BadRequest(w, "expected a JSON array of records or {\"source\": ...}")
		return nil, false
	}
	if h.loader == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "record sources are not configured")
		return nil, false
	}
	records, err := h.loader.LoadRecords(r.Context(), req.Source)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSource) {
			httputil.BadRequest(w, err.Error())
			return nil, false
		}
		respondSafeError(w, http.StatusBadGateway, err, "could not load records")
		return nil, false
	}
	return records, true
}

// HandleDispatch runs the dispatch path
func (h *Handlers) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if r.ContentLength != 0 {
		if !httputil.Decode(w, r, &req) {
			return
		}
	}

	channels, err := bulletin.ParseChannels(req.Channels)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	rep, err := h.runner.Dispatch(context.WithoutCancel(r.Context()), channels)
	resp := RunResponse{Report: rep}
	if rep != nil {
		summary, rerr := h.renderer.Dispatch(rep)
		if rerr != nil {
			logger.Warn("rendering dispatch summary failed", "error", rerr)
		}
		resp.Summary = summary
	}
	if err != nil {
		h.respondRunError(w, err, resp)
		return
	}
	httputil.OK(w, resp)
}

// HandleRuns lists recent runs of one kind
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = storage.KindImport
	}
	if kind != storage.KindImport && kind != storage.KindDispatch {
		httputil.BadRequest(w, "kind must be import or dispatch")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs := []storage.RunEntry{}
	if h.history != nil {
		runs = append(runs, h.history.RecentRuns(kind, limit)...)
	}
	httputil.OK(w, map[string]interface{}{"kind": kind, "runs": runs})
}

// respondRunError maps run failures onto status codes. partial is sent as
// details when the run produced a report before failing.
func (h *Handlers) respondRunError(w http.ResponseWriter, err error, partial interface{}) {
	var stepErr *bulletin.StepError
	switch {
	case errors.Is(err, runlock.ErrHeld):
		httputil.Conflict(w, "a run of this kind is already in progress")
	case errors.Is(err, runner.ErrNotConfigured):
		httputil.Error(w, http.StatusServiceUnavailable, "this run path is not configured")
	case errors.Is(err, contacts.ErrAuthFailed):
		respondSafeError(w, http.StatusBadGateway, err, "directory login failed")
	case errors.Is(err, bulletin.ErrSourceNotFound), errors.Is(err, bulletin.ErrCloneSubmission):
		logger.Error("dispatch clone failed", "error", err)
		httputil.ErrorWithDetails(w, http.StatusBadGateway, "clone_failed", "campaign clone failed", partial)
	case errors.As(err, &stepErr):
		logger.Error("dispatch sequence failed", "step", stepErr.Step, "error", err)
		httputil.ErrorWithDetails(w, http.StatusBadGateway, "step_failed", "maintenance step "+string(stepErr.Step)+" failed", partial)
	default:
		httputil.InternalError(w, err)
	}
}

func decodeNumbers(data []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}
