package bulletin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// CloneNameLayout is the timestamp suffix appended to cloned campaign names.
const CloneNameLayout = "2006-01-02 15:04:05"

// Cloner creates new campaigns from a source campaign's configuration.
type Cloner struct {
	platform Platform
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewCloner creates a Cloner using the wall clock.
func NewCloner(platform Platform) *Cloner {
	return NewClonerWithClock(platform, time.Now)
}

// NewClonerWithClock creates a Cloner reading time from now.
func NewClonerWithClock(platform Platform, now func() time.Time) *Cloner {
	return &Cloner{platform: platform, now: now}
}

// Clone copies the source campaign, strips the fields the platform assigns
// on creation, renames it "{baseName} - {timestamp}" and submits it. No
// write happens when the source cannot be fetched.
func (c *Cloner) Clone(ctx context.Context, sourceID, baseName string) (*domain.CampaignInstance, error) {
	source, err := c.platform.GetCampaign(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: campaign %s: %v", ErrSourceNotFound, sourceID, err)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: campaign %s", ErrSourceNotFound, sourceID)
	}

	data := copyTemplate(source)
	for _, key := range domain.ServerAssignedCampaignKeys {
		delete(data, key)
	}
	name := fmt.Sprintf("%s - %s", baseName, c.stamp().Format(CloneNameLayout))
	data[domain.CampaignKeyName] = name

	inst, err := c.platform.CreateCampaign(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloneSubmission, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: no campaign returned", ErrCloneSubmission)
	}
	if inst.Name == "" {
		inst.Name = name
	}

	logger.Info("campaign cloned", "source_id", sourceID, "campaign_id", inst.ID, "name", inst.Name)
	return inst, nil
}

// stamp returns a second-resolution time strictly after the previous one
// handed out by this Cloner.
func (c *Cloner) stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().Truncate(time.Second)
	if !c.last.IsZero() && !t.After(c.last) {
		t = c.last.Add(time.Second)
	}
	c.last = t
	return t
}

// copyTemplate deep-copies nested maps and slices so the clone shares no
// state with the fetched source.
func copyTemplate(src domain.CampaignTemplate) domain.CampaignTemplate {
	return domain.CampaignTemplate(copyMap(src))
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case domain.CampaignTemplate:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return val
	}
}

