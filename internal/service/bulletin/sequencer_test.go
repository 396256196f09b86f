package bulletin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
)

func TestSequencer_RunsInOrder(t *testing.T) {
	p := newMemPlatform()
	outcomes, err := bulletin.NewSequencer(p).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TriggerSequence, p.steps)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, bulletin.StepCompleted, o.Status)
	}
}

func TestSequencer_HaltsOnFailure(t *testing.T) {
	p := newMemPlatform()
	p.stepErr[domain.StepUpdateCampaigns] = errors.New("exit status 1")

	outcomes, err := bulletin.NewSequencer(p).Run(context.Background())
	require.Error(t, err)

	var stepErr *bulletin.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, domain.StepUpdateCampaigns, stepErr.Step)
	assert.NotContains(t, p.steps, domain.StepTriggerCampaigns)

	assert.Equal(t, []bulletin.StepOutcome{
		{Step: domain.StepUpdateSegments, Status: bulletin.StepCompleted},
		{Step: domain.StepUpdateCampaigns, Status: bulletin.StepFailed, Error: "exit status 1"},
		{Step: domain.StepTriggerCampaigns, Status: bulletin.StepSkipped},
	}, outcomes)
}
