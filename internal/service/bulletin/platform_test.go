package bulletin_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ignite/bulletin-sync/internal/domain"
)

var errCampaignMissing = errors.New("not found")

type sendCall struct {
	Channel    domain.Channel
	TemplateID string
	ContactID  string
}

// memPlatform is an in-memory campaign platform for unit testing.
type memPlatform struct {
	mu        sync.Mutex
	audience  []domain.ContactRecord
	campaigns map[string]domain.CampaignTemplate
	nextID    int

	audienceErr error
	sendErr     map[string]error // keyed by "channel/contact"
	createErr   error
	stepErr     map[domain.MaintenanceStep]error

	filters []domain.AudienceFilter
	sends   []sendCall
	created []domain.CampaignTemplate
	steps   []domain.MaintenanceStep
}

func newMemPlatform() *memPlatform {
	return &memPlatform{
		campaigns: make(map[string]domain.CampaignTemplate),
		nextID:    40,
		sendErr:   make(map[string]error),
		stepErr:   make(map[domain.MaintenanceStep]error),
	}
}

func (m *memPlatform) FindAudience(_ context.Context, filter domain.AudienceFilter) ([]domain.ContactRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	if m.audienceErr != nil {
		return nil, m.audienceErr
	}
	return append([]domain.ContactRecord(nil), m.audience...), nil
}

func (m *memPlatform) SendChannelMessage(_ context.Context, channel domain.Channel, templateID, contactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sendCall{Channel: channel, TemplateID: templateID, ContactID: contactID})
	return m.sendErr[string(channel)+"/"+contactID]
}

func (m *memPlatform) GetCampaign(_ context.Context, id string) (domain.CampaignTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s: %w", id, errCampaignMissing)
	}
	return c, nil
}

func (m *memPlatform) CreateCampaign(_ context.Context, data domain.CampaignTemplate) (*domain.CampaignInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, data)
	m.nextID++
	id := fmt.Sprint(m.nextID)
	name, _ := data[domain.CampaignKeyName].(string)
	return &domain.CampaignInstance{ID: id, Name: name, Config: data}, nil
}

func (m *memPlatform) RunMaintenanceStep(_ context.Context, step domain.MaintenanceStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
	return m.stepErr[step]
}

func audienceOf(ids ...string) []domain.ContactRecord {
	out := make([]domain.ContactRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.ContactRecord{ID: id, Email: "c" + id + "@x.com", Interested: true})
	}
	return out
}
