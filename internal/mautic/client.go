// Package mautic implements the campaign platform on top of the Mautic REST
// API, plus the console-driven maintenance steps.
package mautic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/httpclient"
)

// ErrNotFound is returned when a campaign does not exist
var ErrNotFound = errors.New("mautic: not found")

// Client is a Mautic REST API client
type Client struct {
	baseURL    string
	username   string
	password   string
	basicAuth  bool
	pageSize   int
	httpClient httpclient.HTTPDoer
	console    *Console
}

// NewClient creates a new Mautic client. console runs the maintenance steps.
func NewClient(cfg Config, httpClient httpclient.HTTPDoer, console *Console) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(nil, "mautic", 0)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		basicAuth:  cfg.BasicAuth,
		pageSize:   pageSize,
		httpClient: httpClient,
		console:    console,
	}
}

// doRequest makes an HTTP request to the Mautic API
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.basicAuth {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// FindAudience returns every contact whose filter field matches, following
// pagination until the reported total is reached. Contacts come back in id
// order.
func (c *Client) FindAudience(ctx context.Context, filter domain.AudienceFilter) ([]domain.ContactRecord, error) {
	value := "0"
	if filter.Value {
		value = "1"
	}

	var audience []domain.ContactRecord
	for start := 0; ; {
		params := url.Values{}
		params.Set("search", filter.Field+":"+value)
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("orderBy", "id")
		params.Set("orderByDir", "asc")
		params.Set("minimal", "true")

		body, err := c.doRequest(ctx, http.MethodGet, "/api/contacts?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("fetching contacts: %w", err)
		}

		var page contactListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing contacts: %w", err)
		}
		contacts, err := decodeContacts(page.Contacts)
		if err != nil {
			return nil, fmt.Errorf("parsing contacts: %w", err)
		}
		sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })

		for _, ct := range contacts {
			all := ct.Fields.All
			first, last := stringField(all, "firstname"), stringField(all, "lastname")
			audience = append(audience, domain.ContactRecord{
				ID:         strconv.FormatInt(int64(ct.ID), 10),
				Email:      stringField(all, "email"),
				Name:       strings.TrimSpace(first + " " + last),
				Phone:      stringField(all, "mobile"),
				City:       stringField(all, "city"),
				Interested: filter.Value,
			})
		}

		// The server may cap limit below pageSize, so the reported total
		// decides when to stop whenever it is known.
		if len(contacts) == 0 {
			break
		}
		start += len(contacts)
		if page.Total > 0 {
			if len(audience) >= int(page.Total) {
				break
			}
		} else if len(contacts) < c.pageSize {
			break
		}
	}
	return audience, nil
}

// SendChannelMessage sends one template to one contact through the channel.
// Email sends are POSTs; Mautic exposes the SMS send as a GET.
func (c *Client) SendChannelMessage(ctx context.Context, channel domain.Channel, templateID, contactID string) error {
	var method, path string
	switch channel {
	case domain.ChannelEmail:
		method = http.MethodPost
		path = fmt.Sprintf("/api/emails/%s/contact/%s/send", url.PathEscape(templateID), url.PathEscape(contactID))
	case domain.ChannelSMS:
		method = http.MethodGet
		path = fmt.Sprintf("/api/smses/%s/contact/%s/send", url.PathEscape(templateID), url.PathEscape(contactID))
	default:
		return fmt.Errorf("unsupported channel %q", channel)
	}

	body, err := c.doRequest(ctx, method, path, nil)
	if err != nil {
		return fmt.Errorf("sending %s to contact %s: %w", channel, contactID, err)
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Success != nil && !bool(*resp.Success) {
		return fmt.Errorf("sending %s to contact %s: platform reported failure: %s", channel, contactID, string(body))
	}
	return nil
}

// GetCampaign returns the configuration of a campaign
func (c *Client) GetCampaign(ctx context.Context, id string) (domain.CampaignTemplate, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(id), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching campaign %s: %w", id, err)
	}

	campaign, err := decodeCampaign(body)
	if err != nil {
		return nil, fmt.Errorf("parsing campaign %s: %w", id, err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return campaign, nil
}

// CreateCampaign submits a campaign configuration as a new campaign
func (c *Client) CreateCampaign(ctx context.Context, data domain.CampaignTemplate) (*domain.CampaignInstance, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/campaigns/new", data)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	campaign, err := decodeCampaign(body)
	if err != nil {
		return nil, fmt.Errorf("parsing created campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("creating campaign: response has no campaign: %s", string(body))
	}

	inst := &domain.CampaignInstance{Config: campaign}
	if v, ok := campaign[domain.CampaignKeyID]; ok {
		inst.ID = fmt.Sprint(v)
	}
	if v, ok := campaign[domain.CampaignKeyName].(string); ok {
		inst.Name = v
	}
	return inst, nil
}

// RunMaintenanceStep runs a platform recomputation step
func (c *Client) RunMaintenanceStep(ctx context.Context, step domain.MaintenanceStep) error {
	if c.console == nil {
		return fmt.Errorf("maintenance step %s: no console configured", step)
	}
	return c.console.RunStep(ctx, step)
}

// decodeCampaign extracts the "campaign" object, keeping numbers exact
func decodeCampaign(body []byte) (domain.CampaignTemplate, error) {
	var envelope struct {
		Campaign map[string]interface{} `json:"campaign"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, err
	}
	if envelope.Campaign == nil {
		return nil, nil
	}
	return domain.CampaignTemplate(envelope.Campaign), nil
}
