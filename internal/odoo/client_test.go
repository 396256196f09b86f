package odoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulletin-sync/internal/domain"
)

// rpcCall is a decoded JSON-RPC request as seen by the fake server.
type rpcCall struct {
	Service string
	Method  string
	Args    []json.RawMessage
}

// newFakeOdoo serves /jsonrpc, recording calls and answering with handler.
func newFakeOdoo(t *testing.T, handler func(call rpcCall) (interface{}, *rpcError)) (*httptest.Server, *[]rpcCall) {
	t.Helper()
	var calls []rpcCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jsonrpc" {
			t.Errorf("URL.Path = %q, want /jsonrpc", r.URL.Path)
		}
		var req struct {
			ID     string `json:"id"`
			Params struct {
				Service string            `json:"service"`
				Method  string            `json:"method"`
				Args    []json.RawMessage `json:"args"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		call := rpcCall{Service: req.Params.Service, Method: req.Params.Method, Args: req.Params.Args}
		calls = append(calls, call)

		result, rpcErr := handler(call)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func testConfig(url string) Config {
	return Config{BaseURL: url, Database: "odooDB", Username: "odoo", Password: "pw"}
}

// modelMethod returns the model and method of an execute_kw call.
func modelMethod(t *testing.T, call rpcCall) (string, string) {
	t.Helper()
	require.GreaterOrEqual(t, len(call.Args), 5)
	var model, method string
	require.NoError(t, json.Unmarshal(call.Args[3], &model))
	require.NoError(t, json.Unmarshal(call.Args[4], &method))
	return model, method
}

func TestLogin(t *testing.T) {
	server, calls := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		return 7, nil
	})
	client := NewClient(testConfig(server.URL), nil)

	sess, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Session{UID: 7}, sess)

	require.Len(t, *calls, 1)
	assert.Equal(t, "common", (*calls)[0].Service)
	assert.Equal(t, "login", (*calls)[0].Method)
}

func TestLogin_Rejected(t *testing.T) {
	server, _ := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		return false, nil
	})
	client := NewClient(testConfig(server.URL), nil)

	_, err := client.Login(context.Background())
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestLogin_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()
	client := NewClient(testConfig(server.URL), nil)

	_, err := client.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestFindByEmail(t *testing.T) {
	server, calls := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		return []map[string]interface{}{
			{"id": 12, "name": "Jane Doe", "email": "j@x.com", "phone": false, "city": "Lima"},
		}, nil
	})
	client := NewClient(testConfig(server.URL), nil)

	rec, err := client.FindByEmail(context.Background(), Session{UID: 7}, "j@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.ContactRecord{ID: "12", Email: "j@x.com", Name: "Jane Doe", City: "Lima"}, *rec)

	model, method := modelMethod(t, (*calls)[0])
	assert.Equal(t, "res.partner", model)
	assert.Equal(t, "search_read", method)
	assert.JSONEq(t, `[[["email","=","j@x.com"]]]`, string((*calls)[0].Args[5]))
}

func TestFindByEmail_NotFound(t *testing.T) {
	server, _ := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		return []interface{}{}, nil
	})
	client := NewClient(testConfig(server.URL), nil)

	rec, err := client.FindByEmail(context.Background(), Session{UID: 7}, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreate(t *testing.T) {
	server, calls := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		return 99, nil
	})
	client := NewClient(testConfig(server.URL), nil)

	id, err := client.Create(context.Background(), Session{UID: 7}, domain.ContactFields{
		"name": "Jane Doe", "email": "j@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "99", id)

	model, method := modelMethod(t, (*calls)[0])
	assert.Equal(t, "res.partner", model)
	assert.Equal(t, "create", method)
	assert.JSONEq(t, `[{"name":"Jane Doe","email":"j@x.com"}]`, string((*calls)[0].Args[5]))
}

func TestUpdate_RPCError(t *testing.T) {
	server, _ := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		e := &rpcError{Code: 200, Message: "Odoo Server Error"}
		e.Data.Message = "Record does not exist"
		return nil, e
	})
	client := NewClient(testConfig(server.URL), nil)

	err := client.Update(context.Background(), Session{UID: 7}, "12", domain.ContactFields{"phone": "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Record does not exist")
}

func TestUpdate_InvalidID(t *testing.T) {
	client := NewClient(testConfig("http://unused"), nil)

	err := client.Update(context.Background(), Session{UID: 7}, "abc", domain.ContactFields{"phone": "2"})
	assert.Error(t, err)
}

func TestCategoryLifecycle(t *testing.T) {
	server, calls := newFakeOdoo(t, func(call rpcCall) (interface{}, *rpcError) {
		var method string
		json.Unmarshal(call.Args[4], &method)
		switch method {
		case "search_read":
			return []interface{}{}, nil
		case "create":
			return 5, nil
		case "write":
			return true, nil
		}
		return nil, &rpcError{Message: "unexpected " + method}
	})
	client := NewClient(testConfig(server.URL), nil)
	ctx := context.Background()
	sess := Session{UID: 7}

	cat, err := client.FindCategoryByName(ctx, sess, "Weather fans")
	require.NoError(t, err)
	assert.Nil(t, cat)

	id, err := client.CreateCategory(ctx, sess, "Weather fans")
	require.NoError(t, err)
	assert.Equal(t, "5", id)

	require.NoError(t, client.AttachCategory(ctx, sess, "12", id))

	require.Len(t, *calls, 3)
	model, method := modelMethod(t, (*calls)[2])
	assert.Equal(t, "res.partner", model)
	assert.Equal(t, "write", method)
	// Link command (4, id) on the partner's category_id
	assert.JSONEq(t, `[[12],{"category_id":[[4,5]]}]`, string((*calls)[2].Args[5]))
}

func TestExecuteKw_WrongSession(t *testing.T) {
	client := NewClient(testConfig("http://unused"), nil)

	_, err := client.FindByEmail(context.Background(), "not-a-session", "j@x.com")
	assert.Error(t, err)
}
