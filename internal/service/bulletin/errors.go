package bulletin

import (
	"errors"
	"fmt"

	"github.com/ignite/bulletin-sync/internal/domain"
)

// Sentinel errors for the dispatch path.
var (
	ErrSourceNotFound      = errors.New("source campaign not found")
	ErrCloneSubmission     = errors.New("campaign clone submission failed")
	ErrAudienceUnavailable = errors.New("audience could not be fetched")
	ErrUnknownChannel      = errors.New("unknown channel")
)

// StepError reports which maintenance step halted the sequence.
type StepError struct {
	Step domain.MaintenanceStep
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("maintenance step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
