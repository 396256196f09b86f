// Package report renders run reports as plain-text summaries using Liquid
// templates.
package report

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/bulletin-sync/internal/service/bulletin"
	"github.com/ignite/bulletin-sync/internal/service/contacts"
)

const importTemplate = `Import run {{ run_id }}
  created:   {{ created }}
  updated:   {{ updated }}
  unchanged: {{ unchanged }}
  errored:   {{ errored }}
{% for e in errors %}    record {{ e.index }} ({{ e.email | default: "no email" }}): {{ e.reason }}
{% endfor %}Tag "{{ tag }}": {{ attempted }} attempted, {{ attached }} attached, {{ tag_failed }} failed
{% if tag_error != "" %}  tagging skipped: {{ tag_error }}
{% endif %}`

const dispatchTemplate = `Dispatch run {{ run_id }}
{% if audience_error != "" %}  audience: {{ audience_error }}
{% endif %}{% for c in channels %}  {{ c.channel }} (template {{ c.template_id }}): {{ c.sent }} sent, {{ c.failed }} failed
{% endfor %}{% if campaign_name != "" %}Campaign "{{ campaign_name }}" created (id {{ campaign_id }})
{% else %}Campaign clone failed: {{ clone_error }}
{% endif %}{% for s in steps %}  {{ s.step }}: {{ s.status }}{% if s.error != "" %} ({{ s.error }}){% endif %}
{% endfor %}`

// Renderer turns reports into text
type Renderer struct {
	engine *liquid.Engine

	once     sync.Once
	parseErr error
	imp      *liquid.Template
	dispatch *liquid.Template
}

// NewRenderer creates a Renderer with the built-in templates
func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

func (r *Renderer) parse() error {
	r.once.Do(func() {
		var err error
		if r.imp, err = r.engine.ParseString(importTemplate); err != nil {
			r.parseErr = fmt.Errorf("parsing import template: %w", err)
			return
		}
		if r.dispatch, err = r.engine.ParseString(dispatchTemplate); err != nil {
			r.parseErr = fmt.Errorf("parsing dispatch template: %w", err)
		}
	})
	return r.parseErr
}

// Import renders an import report
func (r *Renderer) Import(rep *contacts.ImportReport) (string, error) {
	if err := r.parse(); err != nil {
		return "", err
	}
	return r.imp.RenderString(importBindings(rep))
}

// Dispatch renders a dispatch report
func (r *Renderer) Dispatch(rep *bulletin.DispatchReport) (string, error) {
	if err := r.parse(); err != nil {
		return "", err
	}
	return r.dispatch.RenderString(dispatchBindings(rep))
}

func importBindings(rep *contacts.ImportReport) map[string]interface{} {
	errs := make([]map[string]interface{}, 0, len(rep.Stats.Errors))
	for _, e := range rep.Stats.Errors {
		errs = append(errs, map[string]interface{}{
			"index":  e.Index,
			"email":  e.Email,
			"reason": e.Reason,
		})
	}
	return map[string]interface{}{
		"run_id":     rep.RunID,
		"created":    rep.Stats.Created,
		"updated":    rep.Stats.Updated,
		"unchanged":  rep.Stats.Unchanged,
		"errored":    rep.Stats.Errored,
		"errors":     errs,
		"tag":        rep.Tagging.Tag,
		"attempted":  rep.Tagging.Attempted,
		"attached":   rep.Tagging.Attached,
		"tag_failed": rep.Tagging.Failed,
		"tag_error":  rep.TagError,
	}
}

func dispatchBindings(rep *bulletin.DispatchReport) map[string]interface{} {
	channels := make([]map[string]interface{}, 0, len(rep.Channels))
	for _, c := range rep.Channels {
		channels = append(channels, map[string]interface{}{
			"channel":     string(c.Channel),
			"template_id": c.TemplateID,
			"sent":        c.Sent,
			"failed":      c.Failed,
		})
	}
	steps := make([]map[string]interface{}, 0, len(rep.Steps))
	for _, s := range rep.Steps {
		steps = append(steps, map[string]interface{}{
			"step":   string(s.Step),
			"status": string(s.Status),
			"error":  s.Error,
		})
	}

	var campaignName, campaignID string
	if rep.Campaign != nil {
		campaignName, campaignID = rep.Campaign.Name, rep.Campaign.ID
	}
	return map[string]interface{}{
		"run_id":         rep.RunID,
		"audience_error": rep.AudienceError,
		"channels":       channels,
		"campaign_name":  campaignName,
		"campaign_id":    campaignID,
		"clone_error":    rep.CloneError,
		"steps":          steps,
	}
}
