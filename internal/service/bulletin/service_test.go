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

func newService(p *memPlatform) *bulletin.Service {
	return bulletin.NewService(p, bulletin.Settings{
		EmailTemplateID:  "3",
		SMSTemplateID:    "4",
		SourceCampaignID: "7",
		BaseCampaignName: "Weather bulletin",
		OptInField:       "climabulletin",
	})
}

func TestService_Run(t *testing.T) {
	p := newMemPlatform()
	p.audience = audienceOf("1", "2")
	p.campaigns["7"] = sourceCampaign()

	report, err := newService(p).Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, report.Channels, 2)
	assert.Equal(t, 2, report.Channels[0].Sent)
	assert.Equal(t, 2, report.Channels[1].Sent)
	require.NotNil(t, report.Campaign)
	assert.Contains(t, report.Campaign.Name, "Weather bulletin - ")
	assert.Equal(t, domain.TriggerSequence, p.steps)
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
}

func TestService_CloneFailureSkipsSequence(t *testing.T) {
	p := newMemPlatform()
	p.audience = audienceOf("1")

	report, err := newService(p).Run(context.Background(), []domain.Channel{domain.ChannelEmail})
	require.ErrorIs(t, err, bulletin.ErrSourceNotFound)

	// Completed sends stay in the report
	require.Len(t, report.Channels, 1)
	assert.Equal(t, 1, report.Channels[0].Sent)
	assert.NotEmpty(t, report.CloneError)
	assert.Empty(t, p.steps)
	require.Len(t, report.Steps, 3)
	for _, s := range report.Steps {
		assert.Equal(t, bulletin.StepSkipped, s.Status)
	}
	assert.False(t, report.Succeeded())
}

func TestService_StepFailureIsReturned(t *testing.T) {
	p := newMemPlatform()
	p.campaigns["7"] = sourceCampaign()
	p.stepErr[domain.StepTriggerCampaigns] = errors.New("boom")

	report, err := newService(p).Run(context.Background(), nil)
	var stepErr *bulletin.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, domain.StepTriggerCampaigns, stepErr.Step)
	assert.NotNil(t, report.Campaign)
	assert.False(t, report.Succeeded())
}

func TestService_AudienceFailureStillClones(t *testing.T) {
	p := newMemPlatform()
	p.audienceErr = errors.New("timeout")
	p.campaigns["7"] = sourceCampaign()

	report, err := newService(p).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, report.AudienceError, "audience could not be fetched")
	assert.Empty(t, p.sends)
	assert.Len(t, p.created, 1)
}

func TestParseChannels(t *testing.T) {
	chs, err := bulletin.ParseChannels([]string{"SMS", "email", "sms"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{domain.ChannelSMS, domain.ChannelEmail}, chs)

	chs, err = bulletin.ParseChannels(nil)
	require.NoError(t, err)
	assert.Nil(t, chs)

	_, err = bulletin.ParseChannels([]string{"fax"})
	assert.ErrorIs(t, err, bulletin.ErrUnknownChannel)
}
