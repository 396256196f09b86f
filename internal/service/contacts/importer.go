package contacts

import (
	"context"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// Outcome is the result of importing one record.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeErrored   Outcome = "errored"
)

// RecordError describes why one record was counted as errored.
type RecordError struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// ImportStats counts outcomes over a batch.
type ImportStats struct {
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Errored   int           `json:"errored"`
	Errors    []RecordError `json:"errors,omitempty"`
}

// Total is the number of records processed.
func (s ImportStats) Total() int {
	return s.Created + s.Updated + s.Unchanged + s.Errored
}

func (s *ImportStats) record(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeErrored:
		s.Errored++
	}
}

// CandidateSet is an insertion-ordered set of contact ids to tag.
type CandidateSet struct {
	ids  []string
	seen map[string]struct{}
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{seen: make(map[string]struct{})}
}

// Add appends id unless it is already present or empty.
func (c *CandidateSet) Add(id string) {
	if id == "" {
		return
	}
	if _, ok := c.seen[id]; ok {
		return
	}
	c.seen[id] = struct{}{}
	c.ids = append(c.ids, id)
}

// IDs returns the ids in insertion order.
func (c *CandidateSet) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of ids.
func (c *CandidateSet) Len() int { return len(c.ids) }

// Importer runs the reconciler over a batch of records.
type Importer struct {
	dir     Directory
	mapping FieldMapping
}

// NewImporter creates an Importer that reads records with mapping.
func NewImporter(dir Directory, mapping FieldMapping) *Importer {
	return &Importer{dir: dir, mapping: mapping}
}

// ImportBatch processes records in order, one at a time. A failing record is
// counted and skipped; it never stops the batch. The returned set holds the
// ids of every interested contact whose identity was confirmed.
func (imp *Importer) ImportBatch(ctx context.Context, sess domain.Session, records []RawRecord) (ImportStats, *CandidateSet) {
	var stats ImportStats
	candidates := NewCandidateSet()

	for i, raw := range records {
		outcome, id, interested, err := imp.importOne(ctx, sess, raw)
		stats.record(outcome)

		if err != nil {
			email, _ := raw[imp.mapping.Email].(string)
			stats.Errors = append(stats.Errors, RecordError{Index: i, Email: logger.RedactEmail(email), Reason: err.Error()})
			logger.Warn("record import failed", "index", i, "email", email, "error", err)
			continue
		}
		if interested {
			candidates.Add(id)
		}
	}

	logger.Info("import batch finished",
		"created", stats.Created, "updated", stats.Updated,
		"unchanged", stats.Unchanged, "errored", stats.Errored,
		"tag_candidates", candidates.Len())
	return stats, candidates
}

// importOne returns the outcome, the confirmed contact id and the opt-in flag.
func (imp *Importer) importOne(ctx context.Context, sess domain.Session, raw RawRecord) (Outcome, string, bool, error) {
	in, err := imp.mapping.Map(raw)
	if err != nil {
		return OutcomeErrored, "", false, err
	}

	existing, err := imp.dir.FindByEmail(ctx, sess, in.Email)
	if err != nil {
		return OutcomeErrored, "", false, err
	}

	d := Reconcile(in, existing)
	switch d.Op {
	case OpCreate:
		id, err := imp.dir.Create(ctx, sess, d.Fields)
		if err != nil {
			return OutcomeErrored, "", false, err
		}
		logger.Debug("contact created", "email", in.Email, "id", id)
		return OutcomeCreated, id, d.Interested, nil
	case OpUpdate:
		if err := imp.dir.Update(ctx, sess, existing.ID, d.Fields); err != nil {
			return OutcomeErrored, "", false, err
		}
		logger.Debug("contact updated", "email", in.Email, "id", existing.ID, "fields", len(d.Fields))
		return OutcomeUpdated, existing.ID, d.Interested, nil
	default:
		return OutcomeUnchanged, existing.ID, d.Interested, nil
	}
}
