package bulletin

import (
	"context"
	"fmt"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// DispatchResult counts sends on one channel.
type DispatchResult struct {
	Channel    domain.Channel `json:"channel"`
	TemplateID string         `json:"template_id"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	FailedIDs  []string       `json:"failed_ids,omitempty"`
}

// Dispatcher sends the bulletin to the opted-in audience.
type Dispatcher struct {
	platform  Platform
	filter    domain.AudienceFilter
	templates map[domain.Channel]string
}

// NewDispatcher creates a Dispatcher. templates maps each channel to the
// template sent through it.
func NewDispatcher(platform Platform, optInField string, templates map[domain.Channel]string) *Dispatcher {
	return &Dispatcher{
		platform:  platform,
		filter:    domain.AudienceFilter{Field: optInField, Value: true},
		templates: templates,
	}
}

// Dispatch fetches the audience once and sends one message per recipient on
// every requested channel, channel after channel. Send failures are counted
// per channel and never stop the loop. Results follow the order of channels.
// An error is returned only when the audience itself cannot be fetched.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []domain.Channel) ([]DispatchResult, error) {
	results := make([]DispatchResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, DispatchResult{Channel: ch, TemplateID: d.templates[ch]})
	}

	audience, err := d.platform.FindAudience(ctx, d.filter)
	if err != nil {
		return results, fmt.Errorf("%w: %v", ErrAudienceUnavailable, err)
	}
	logger.Info("audience fetched", "field", d.filter.Field, "contacts", len(audience))
	if len(audience) == 0 {
		return results, nil
	}

	for i := range results {
		r := &results[i]
		for _, contact := range audience {
			if err := d.platform.SendChannelMessage(ctx, r.Channel, r.TemplateID, contact.ID); err != nil {
				r.Failed++
				r.FailedIDs = append(r.FailedIDs, contact.ID)
				logger.Warn("send failed", "channel", r.Channel, "contact_id", contact.ID, "email", contact.Email, "error", err)
				continue
			}
			r.Sent++
		}
		logger.Info("channel dispatched", "channel", r.Channel, "sent", r.Sent, "failed", r.Failed)
	}
	return results, nil
}
