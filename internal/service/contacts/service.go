package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// ImportReport is the result of one import run.
type ImportReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Stats      ImportStats      `json:"stats"`
	Tagging    AssignmentReport `json:"tagging"`
	// TagError is set when the category could not be resolved; the import
	// itself is still committed.
	TagError string `json:"tag_error,omitempty"`
}

// Service is the import entry point: login, import the batch, tag.
type Service struct {
	dir      Directory
	importer *Importer
	tagger   *TagAssigner
	tagName  string
	now      func() time.Time
}

// NewService creates an import service.
func NewService(dir Directory, mapping FieldMapping, tagName string) *Service {
	return &Service{
		dir:      dir,
		importer: NewImporter(dir, mapping),
		tagger:   NewTagAssigner(dir),
		tagName:  tagName,
		now:      time.Now,
	}
}

// Import runs the full import path over records. Only a failed login is
// returned as an error; per-record and per-tag failures are in the report.
func (s *Service) Import(ctx context.Context, records []RawRecord) (*ImportReport, error) {
	report := &ImportReport{RunID: uuid.NewString(), StartedAt: s.now()}

	sess, err := s.dir.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	logger.Info("import started", "run_id", report.RunID, "records", len(records))

	stats, candidates := s.importer.ImportBatch(ctx, sess, records)
	report.Stats = stats

	tagging, err := s.tagger.AssignTag(ctx, sess, candidates.IDs(), s.tagName)
	report.Tagging = tagging
	if err != nil {
		report.TagError = err.Error()
		logger.Error("tagging skipped", "run_id", report.RunID, "error", err)
	}

	report.FinishedAt = s.now()
	return report, nil
}
