package contacts

import (
	"context"
	"fmt"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// AssignmentReport summarizes one tagging pass.
type AssignmentReport struct {
	Tag             string   `json:"tag"`
	CategoryID      string   `json:"category_id,omitempty"`
	CategoryCreated bool     `json:"category_created"`
	Attempted       int      `json:"attempted"`
	Attached        int      `json:"attached"`
	Failed          int      `json:"failed"`
	FailedIDs       []string `json:"failed_ids,omitempty"`
}

// TagAssigner attaches one named category to a set of contacts.
type TagAssigner struct {
	dir Directory
}

// NewTagAssigner creates a TagAssigner.
func NewTagAssigner(dir Directory) *TagAssigner {
	return &TagAssigner{dir: dir}
}

// AssignTag resolves tagName to a category exactly once, creating it if it
// does not exist, then attaches it to every candidate. Attach failures are
// counted per id. An empty candidate list performs no directory calls.
func (t *TagAssigner) AssignTag(ctx context.Context, sess domain.Session, candidates []string, tagName string) (AssignmentReport, error) {
	report := AssignmentReport{Tag: tagName}
	if len(candidates) == 0 {
		return report, nil
	}

	categoryID, created, err := t.resolve(ctx, sess, tagName)
	if err != nil {
		return report, err
	}
	report.CategoryID = categoryID
	report.CategoryCreated = created

	for _, id := range candidates {
		report.Attempted++
		if err := t.dir.AttachCategory(ctx, sess, id, categoryID); err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, id)
			logger.Warn("attach category failed", "contact_id", id, "category_id", categoryID, "error", err)
			continue
		}
		report.Attached++
	}

	logger.Info("tagging finished", "tag", tagName, "attached", report.Attached, "failed", report.Failed)
	return report, nil
}

func (t *TagAssigner) resolve(ctx context.Context, sess domain.Session, name string) (string, bool, error) {
	cat, err := t.dir.FindCategoryByName(ctx, sess, name)
	if err != nil {
		return "", false, fmt.Errorf("%w: looking up %q: %v", ErrCategoryUnavailable, name, err)
	}
	if cat != nil {
		return cat.ID, false, nil
	}

	id, err := t.dir.CreateCategory(ctx, sess, name)
	if err != nil {
		return "", false, fmt.Errorf("%w: creating %q: %v", ErrCategoryUnavailable, name, err)
	}
	logger.Info("category created", "tag", name, "category_id", id)
	return id, true, nil
}
