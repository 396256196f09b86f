package mautic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Config holds the connection settings for a Mautic instance
type Config struct {
	BaseURL  string
	Username string
	Password string
	// BasicAuth is false when the HTTP client already carries OAuth2 tokens
	BasicAuth bool
	// PageSize bounds each contact search page
	PageSize int
}

const defaultPageSize = 200

// APIError is a non-2xx answer from the REST API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// contactListResponse is GET /api/contacts. Contacts is an object keyed by
// id, or an empty array when nothing matched.
type contactListResponse struct {
	Total    flexInt         `json:"total"`
	Contacts json.RawMessage `json:"contacts"`
}

type contactPayload struct {
	ID     flexInt `json:"id"`
	Fields struct {
		All map[string]interface{} `json:"all"`
	} `json:"fields"`
}

type sendResponse struct {
	Success *flexBool `json:"success"`
}

// flexInt accepts numbers and numeric strings
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(b))
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true/false, 1/0 and their string forms
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

func decodeContacts(raw json.RawMessage) ([]contactPayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []contactPayload
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var byID map[string]contactPayload
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, err
	}
	list := make([]contactPayload, 0, len(byID))
	for _, c := range byID {
		list = append(list, c)
	}
	return list, nil
}

func stringField(all map[string]interface{}, key string) string {
	v, ok := all[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}
