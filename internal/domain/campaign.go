package domain

import "strings"

// Channel is a delivery channel on the campaign platform.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// AllChannels is every supported channel in dispatch order.
var AllChannels = []Channel{ChannelEmail, ChannelSMS}

// ParseChannel converts a user supplied name into a Channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelSMS:
		return ChannelSMS, true
	default:
		return "", false
	}
}

// CampaignTemplate is a campaign's configuration snapshot as returned by the
// platform. Keys and nesting follow the platform's own representation.
type CampaignTemplate map[string]any

// Campaign template keys assigned by the platform on creation.
const (
	CampaignKeyID           = "id"
	CampaignKeyName         = "name"
	CampaignKeyDateAdded    = "dateAdded"
	CampaignKeyDateModified = "dateModified"
)

// ServerAssignedCampaignKeys are stripped from a template before it is
// submitted as a new campaign.
var ServerAssignedCampaignKeys = []string{
	CampaignKeyID,
	CampaignKeyDateAdded,
	CampaignKeyDateModified,
}

// CampaignInstance is a campaign created on the platform.
type CampaignInstance struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Config CampaignTemplate `json:"config,omitempty"`
}

// AudienceFilter selects contacts on the platform by a boolean field.
type AudienceFilter struct {
	Field string `json:"field"`
	Value bool   `json:"value"`
}

// MaintenanceStep is a platform-side recomputation step.
type MaintenanceStep string

const (
	StepUpdateSegments   MaintenanceStep = "UpdateSegments"
	StepUpdateCampaigns  MaintenanceStep = "UpdateCampaigns"
	StepTriggerCampaigns MaintenanceStep = "TriggerCampaigns"
)

// TriggerSequence is the required order of maintenance steps.
var TriggerSequence = []MaintenanceStep{
	StepUpdateSegments,
	StepUpdateCampaigns,
	StepTriggerCampaigns,
}
