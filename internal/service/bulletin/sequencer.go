package bulletin

import (
	"context"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// StepStatus is the state a maintenance step ended in.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepOutcome records how one maintenance step ended.
type StepOutcome struct {
	Step   domain.MaintenanceStep `json:"step"`
	Status StepStatus             `json:"status"`
	Error  string                 `json:"error,omitempty"`
}

// Sequencer runs the maintenance steps strictly in order.
type Sequencer struct {
	platform Platform
	steps    []domain.MaintenanceStep
}

// NewSequencer creates a Sequencer for domain.TriggerSequence.
func NewSequencer(platform Platform) *Sequencer {
	return &Sequencer{platform: platform, steps: domain.TriggerSequence}
}

// Run executes each step after the previous one completed. The first failure
// halts the sequence; later steps are reported as skipped and the returned
// error is a *StepError naming the failed step.
func (s *Sequencer) Run(ctx context.Context) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(s.steps))
	for i, step := range s.steps {
		logger.Info("running maintenance step", "step", step)
		if err := s.platform.RunMaintenanceStep(ctx, step); err != nil {
			outcomes = append(outcomes, StepOutcome{Step: step, Status: StepFailed, Error: err.Error()})
			outcomes = append(outcomes, s.Skipped(s.steps[i+1:])...)
			logger.Error("maintenance step failed", "step", step, "error", err)
			return outcomes, &StepError{Step: step, Err: err}
		}
		outcomes = append(outcomes, StepOutcome{Step: step, Status: StepCompleted})
	}
	return outcomes, nil
}

// Skipped reports steps as not attempted. A nil steps means the whole
// sequence.
func (s *Sequencer) Skipped(steps []domain.MaintenanceStep) []StepOutcome {
	if steps == nil {
		steps = s.steps
	}
	out := make([]StepOutcome, 0, len(steps))
	for _, step := range steps {
		out = append(out, StepOutcome{Step: step, Status: StepSkipped})
	}
	return out
}
