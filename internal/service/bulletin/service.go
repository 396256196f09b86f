package bulletin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// Settings holds the platform ids the dispatch path works with.
type Settings struct {
	EmailTemplateID  string
	SMSTemplateID    string
	SourceCampaignID string
	BaseCampaignName string
	OptInField       string
	// DefaultChannels is used when a run names no channels.
	DefaultChannels []domain.Channel
}

// DispatchReport is the combined result of one dispatch run.
type DispatchReport struct {
	RunID         string                   `json:"run_id"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    time.Time                `json:"finished_at"`
	Channels      []DispatchResult         `json:"channels"`
	AudienceError string                   `json:"audience_error,omitempty"`
	Campaign      *domain.CampaignInstance `json:"campaign,omitempty"`
	CloneError    string                   `json:"clone_error,omitempty"`
	Steps         []StepOutcome            `json:"steps"`
}

// Succeeded reports whether the campaign was cloned and every step completed.
func (r *DispatchReport) Succeeded() bool {
	if r.Campaign == nil || r.CloneError != "" {
		return false
	}
	for _, s := range r.Steps {
		if s.Status != StepCompleted {
			return false
		}
	}
	return len(r.Steps) > 0
}

// Service is the dispatch entry point: dispatch, clone, then sequence.
type Service struct {
	settings   Settings
	dispatcher *Dispatcher
	cloner     *Cloner
	sequencer  *Sequencer
	now        func() time.Time
}

// NewService creates a dispatch service.
func NewService(platform Platform, settings Settings) *Service {
	if len(settings.DefaultChannels) == 0 {
		settings.DefaultChannels = domain.AllChannels
	}
	templates := map[domain.Channel]string{
		domain.ChannelEmail: settings.EmailTemplateID,
		domain.ChannelSMS:   settings.SMSTemplateID,
	}
	return &Service{
		settings:   settings,
		dispatcher: NewDispatcher(platform, settings.OptInField, templates),
		cloner:     NewCloner(platform),
		sequencer:  NewSequencer(platform),
		now:        time.Now,
	}
}

// ParseChannels converts channel names into a deduplicated channel list in
// the order given. An empty input yields nil.
func ParseChannels(names []string) ([]domain.Channel, error) {
	var out []domain.Channel
	seen := make(map[domain.Channel]bool)
	for _, name := range names {
		ch, ok := domain.ParseChannel(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
		}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out, nil
}

// Run sends the bulletin on channels, then clones the source campaign and
// runs the maintenance sequence. Send failures stay in the report. A clone
// or step failure is returned alongside the report, which still carries the
// completed sends.
func (s *Service) Run(ctx context.Context, channels []domain.Channel) (*DispatchReport, error) {
	if len(channels) == 0 {
		channels = s.settings.DefaultChannels
	}
	report := &DispatchReport{RunID: uuid.NewString(), StartedAt: s.now()}
	logger.Info("dispatch started", "run_id", report.RunID, "channels", channels)

	results, err := s.dispatcher.Dispatch(ctx, channels)
	report.Channels = results
	if err != nil {
		report.AudienceError = err.Error()
		logger.Error("audience unavailable, no messages sent", "run_id", report.RunID, "error", err)
	}

	inst, err := s.cloner.Clone(ctx, s.settings.SourceCampaignID, s.settings.BaseCampaignName)
	if err != nil {
		report.CloneError = err.Error()
		report.Steps = s.sequencer.Skipped(nil)
		report.FinishedAt = s.now()
		logger.Error("campaign clone failed", "run_id", report.RunID, "error", err)
		return report, err
	}
	report.Campaign = inst

	steps, err := s.sequencer.Run(ctx)
	report.Steps = steps
	report.FinishedAt = s.now()
	if err != nil {
		return report, err
	}

	logger.Info("dispatch finished", "run_id", report.RunID, "campaign_id", inst.ID)
	return report, nil
}
