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

var templates = map[domain.Channel]string{
	domain.ChannelEmail: "3",
	domain.ChannelSMS:   "4",
}

func TestDispatch_SendsEveryChannel(t *testing.T) {
	p := newMemPlatform()
	p.audience = audienceOf("1", "2")
	d := bulletin.NewDispatcher(p, "climabulletin", templates)

	results, err := d.Dispatch(context.Background(), []domain.Channel{domain.ChannelEmail, domain.ChannelSMS})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, bulletin.DispatchResult{Channel: domain.ChannelEmail, TemplateID: "3", Sent: 2}, results[0])
	assert.Equal(t, bulletin.DispatchResult{Channel: domain.ChannelSMS, TemplateID: "4", Sent: 2}, results[1])

	assert.Equal(t, []domain.AudienceFilter{{Field: "climabulletin", Value: true}}, p.filters)
	assert.Equal(t, []sendCall{
		{domain.ChannelEmail, "3", "1"},
		{domain.ChannelEmail, "3", "2"},
		{domain.ChannelSMS, "4", "1"},
		{domain.ChannelSMS, "4", "2"},
	}, p.sends)
}

func TestDispatch_EmptyAudience(t *testing.T) {
	p := newMemPlatform()
	d := bulletin.NewDispatcher(p, "climabulletin", templates)

	results, err := d.Dispatch(context.Background(), domain.AllChannels)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Zero(t, r.Sent)
		assert.Zero(t, r.Failed)
	}
	assert.Empty(t, p.sends)
}

func TestDispatch_FailuresAreIsolatedPerChannel(t *testing.T) {
	p := newMemPlatform()
	p.audience = audienceOf("1", "2", "3")
	p.sendErr["email/2"] = errors.New("bounced")
	p.sendErr["sms/1"] = errors.New("no mobile")
	p.sendErr["sms/3"] = errors.New("no mobile")
	d := bulletin.NewDispatcher(p, "climabulletin", templates)

	results, err := d.Dispatch(context.Background(), domain.AllChannels)
	require.NoError(t, err)

	assert.Equal(t, 2, results[0].Sent)
	assert.Equal(t, 1, results[0].Failed)
	assert.Equal(t, []string{"2"}, results[0].FailedIDs)
	assert.Equal(t, 1, results[1].Sent)
	assert.Equal(t, 2, results[1].Failed)
	assert.Len(t, p.sends, 6)
}

func TestDispatch_SingleChannel(t *testing.T) {
	p := newMemPlatform()
	p.audience = audienceOf("1")
	d := bulletin.NewDispatcher(p, "climabulletin", templates)

	results, err := d.Dispatch(context.Background(), []domain.Channel{domain.ChannelSMS})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChannelSMS, results[0].Channel)
	assert.Equal(t, []sendCall{{domain.ChannelSMS, "4", "1"}}, p.sends)
}

func TestDispatch_AudienceUnavailable(t *testing.T) {
	p := newMemPlatform()
	p.audienceErr = errors.New("502 bad gateway")
	d := bulletin.NewDispatcher(p, "climabulletin", templates)

	results, err := d.Dispatch(context.Background(), domain.AllChannels)
	require.ErrorIs(t, err, bulletin.ErrAudienceUnavailable)
	assert.Len(t, results, 2)
	assert.Empty(t, p.sends)
}
