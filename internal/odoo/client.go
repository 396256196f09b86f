// Package odoo implements the contact directory on top of Odoo's JSON-RPC
// endpoint (res.partner and res.partner.category).
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/httpclient"
)

// ErrLoginRejected is returned when Odoo answers a login with no uid.
var ErrLoginRejected = errors.New("odoo rejected the credentials")

// Client is the Odoo JSON-RPC client
type Client struct {
	endpoint   string
	database   string
	username   string
	password   string
	httpClient httpclient.HTTPDoer
}

// NewClient creates a new Odoo client
func NewClient(cfg Config, httpClient httpclient.HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(nil, "odoo", 0)
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/jsonrpc",
		database:   cfg.Database,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
	}
}

// call performs one JSON-RPC call and returns the raw result
func (c *Client) call(ctx context.Context, service, method string, args ...interface{}) (json.RawMessage, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      uuid.NewString(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// executeKw calls a model method through the object service
func (c *Client) executeKw(ctx context.Context, sess domain.Session, model, method string, args []interface{}, kwargs map[string]interface{}) (json.RawMessage, error) {
	s, ok := sess.(Session)
	if !ok {
		return nil, fmt.Errorf("odoo: unexpected session type %T", sess)
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	return c.call(ctx, "object", "execute_kw", c.database, s.UID, c.password, model, method, args, kwargs)
}

// Login authenticates and returns the session used by every other call
func (c *Client) Login(ctx context.Context) (domain.Session, error) {
	result, err := c.call(ctx, "common", "login", c.database, c.username, c.password)
	if err != nil {
		return nil, fmt.Errorf("odoo login: %w", err)
	}
	var uid int64
	// A failed login returns false instead of a uid
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return nil, ErrLoginRejected
	}
	return Session{UID: uid}, nil
}

// FindByEmail returns the partner with exactly this email, or nil
func (c *Client) FindByEmail(ctx context.Context, sess domain.Session, email string) (*domain.ContactRecord, error) {
	domainFilter := []interface{}{[]interface{}{"email", "=", email}}
	result, err := c.executeKw(ctx, sess, modelPartner, "search_read",
		[]interface{}{domainFilter},
		map[string]interface{}{"fields": []string{"id", "name", "email", "phone", "city"}, "limit": 1})
	if err != nil {
		return nil, fmt.Errorf("searching partner: %w", err)
	}

	var rows []partnerRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("parsing partner search: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &domain.ContactRecord{
		ID:    formatID(row.ID),
		Email: string(row.Email),
		Name:  string(row.Name),
		Phone: string(row.Phone),
		City:  string(row.City),
	}, nil
}

// Create creates a partner and returns its id
func (c *Client) Create(ctx context.Context, sess domain.Session, fields domain.ContactFields) (string, error) {
	result, err := c.executeKw(ctx, sess, modelPartner, "create", []interface{}{map[string]any(fields)}, nil)
	if err != nil {
		return "", fmt.Errorf("creating partner: %w", err)
	}
	return decodeCreatedID(result)
}

// Update writes only the given fields on an existing partner
func (c *Client) Update(ctx context.Context, sess domain.Session, id string, fields domain.ContactFields) error {
	return c.write(ctx, sess, id, map[string]any(fields))
}

// FindCategoryByName returns the partner category with exactly this name, or nil
func (c *Client) FindCategoryByName(ctx context.Context, sess domain.Session, name string) (*domain.Category, error) {
	domainFilter := []interface{}{[]interface{}{"name", "=", name}}
	result, err := c.executeKw(ctx, sess, modelCategory, "search_read",
		[]interface{}{domainFilter},
		map[string]interface{}{"fields": []string{"id", "name"}, "limit": 1})
	if err != nil {
		return nil, fmt.Errorf("searching category: %w", err)
	}

	var rows []categoryRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("parsing category search: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &domain.Category{ID: formatID(rows[0].ID), Name: string(rows[0].Name)}, nil
}

// CreateCategory creates a partner category and returns its id
func (c *Client) CreateCategory(ctx context.Context, sess domain.Session, name string) (string, error) {
	result, err := c.executeKw(ctx, sess, modelCategory, "create",
		[]interface{}{map[string]interface{}{"name": name}}, nil)
	if err != nil {
		return "", fmt.Errorf("creating category: %w", err)
	}
	return decodeCreatedID(result)
}

// AttachCategory links a category to a partner. The link command leaves an
// existing association untouched, so repeating it is harmless.
func (c *Client) AttachCategory(ctx context.Context, sess domain.Session, contactID, categoryID string) error {
	cid, err := parseID(categoryID)
	if err != nil {
		return fmt.Errorf("invalid category id %q: %w", categoryID, err)
	}
	return c.write(ctx, sess, contactID, map[string]any{
		"category_id": []interface{}{[]interface{}{linkCommand, cid}},
	})
}

func (c *Client) write(ctx context.Context, sess domain.Session, id string, values map[string]any) error {
	pid, err := parseID(id)
	if err != nil {
		return fmt.Errorf("invalid partner id %q: %w", id, err)
	}
	result, err := c.executeKw(ctx, sess, modelPartner, "write",
		[]interface{}{[]int64{pid}, values}, nil)
	if err != nil {
		return fmt.Errorf("writing partner %d: %w", pid, err)
	}
	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil || !ok {
		return fmt.Errorf("writing partner %d: odoo returned %s", pid, string(result))
	}
	return nil
}

func decodeCreatedID(result json.RawMessage) (string, error) {
	var id int64
	if err := json.Unmarshal(result, &id); err != nil || id == 0 {
		return "", fmt.Errorf("odoo returned no id: %s", string(result))
	}
	return formatID(id), nil
}
