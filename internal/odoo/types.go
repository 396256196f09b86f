package odoo

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Config holds the connection settings for an Odoo instance
type Config struct {
	BaseURL  string
	Database string
	Username string
	Password string
}

// Session is the authenticated handle returned by Login. It is created
// once per run and only read afterwards.
type Session struct {
	UID int64
}

// Odoo models used by the client
const (
	modelPartner  = "res.partner"
	modelCategory = "res.partner.category"
)

// linkCommand is the x2many "link" command: add the record to the relation
// if it is not already there.
const linkCommand = 4

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

type rpcParams struct {
	Service string        `json:"service"`
	Method  string        `json:"method"`
	Args    []interface{} `json:"args"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return "odoo: " + e.Message + ": " + e.Data.Message
	}
	return "odoo: " + e.Message
}

// partnerRow is one res.partner row from search_read. Odoo sends false for
// empty char fields, so those are decoded loosely.
type partnerRow struct {
	ID    int64     `json:"id"`
	Name  fieldText `json:"name"`
	Email fieldText `json:"email"`
	Phone fieldText `json:"phone"`
	City  fieldText `json:"city"`
}

type categoryRow struct {
	ID   int64     `json:"id"`
	Name fieldText `json:"name"`
}

// fieldText decodes an Odoo scalar field: strings stay, false/null become
// "", numbers keep their digits.
type fieldText string

func (f *fieldText) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "false" || s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = fieldText(v)
	default:
		*f = fieldText(s)
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(id string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(id), 10, 64)
}
