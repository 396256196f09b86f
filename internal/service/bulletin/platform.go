package bulletin

import (
	"context"

	"github.com/ignite/bulletin-sync/internal/domain"
)

// Platform is the campaign platform as seen by the dispatch path.
type Platform interface {
	FindAudience(ctx context.Context, filter domain.AudienceFilter) ([]domain.ContactRecord, error)
	SendChannelMessage(ctx context.Context, channel domain.Channel, templateID, contactID string) error
	// GetCampaign returns an error wrapping a not-found sentinel when the
	// campaign does not exist; any error is treated as the source being
	// unavailable.
	GetCampaign(ctx context.Context, id string) (domain.CampaignTemplate, error)
	CreateCampaign(ctx context.Context, data domain.CampaignTemplate) (*domain.CampaignInstance, error)
	RunMaintenanceStep(ctx context.Context, step domain.MaintenanceStep) error
}
