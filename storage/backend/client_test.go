package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	conf := &core.Config{}
	conf.Backend.URL = srv.URL
	conf.Backend.AnonKey = "anon-key"
	conf.Backend.ServiceKey = "service-key"
	conf.Backend.Timeout = 5 * time.Second
	return NewClient(conf), srv
}

func TestQueryRowsBuildsFilters(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/students", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.main", q.Get("branch"))
		assert.Equal(t, "roll_number.asc", q.Get("order"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"roll_number":"m_1"},{"roll_number":"m_2"}]`))
	}))
	defer srv.Close()

	var rows []map[string]string
	err := client.QueryRows(context.Background(), Query{
		Table:   "students",
		Filters: []Filter{Eq("branch", "main")},
		Order:   "roll_number.asc",
	}, &rows)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetRow(t *testing.T) {
	empty := false
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		if empty {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"roll_number":"m_1","student_name":"asha"}]`))
	}))
	defer srv.Close()

	var row map[string]string
	err := client.GetRow(context.Background(), Query{Table: "students"}, &row)
	require.NoError(t, err)
	assert.Equal(t, "asha", row["student_name"])

	empty = true
	err = client.GetRow(context.Background(), Query{Table: "students"}, &row)
	assert.Equal(t, ErrNoRow, err)
}

func TestInsertRowsRequestsRepresentation(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var rows []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		rows[0]["id"] = "7"
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	var created []map[string]string
	err := client.InsertRows(context.Background(), "notes", []map[string]string{{"title": "todo"}}, &created)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "7", created[0]["id"])
}

func TestUpdateRowNoMatch(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.m_404", r.URL.Query().Get("roll_number"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var row map[string]string
	err := client.UpdateRow(context.Background(), "students", []Filter{Eq("roll_number", "m_404")},
		map[string]string{"course": "dca"}, &row)
	assert.Equal(t, ErrNoRow, err)
}

func TestDeleteRow(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.m_1", r.URL.Query().Get("roll_number"))
		_, _ = w.Write([]byte(`[{"roll_number":"m_1"}]`))
	}))
	defer srv.Close()

	err := client.DeleteRow(context.Background(), "students", []Filter{Eq("roll_number", "m_1")})
	require.NoError(t, err)
}

func TestCallProcedure(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/get_monthly_revenue", r.URL.Path)
		var params map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, 2026, params["year"])
		assert.Equal(t, 8, params["month"])
		_, _ = w.Write([]byte(`42000`))
	}))
	defer srv.Close()

	total, err := NewAggregates(client).MonthlyRevenue(context.Background(), 2026, 8)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, total)
}

func TestAPIErrorPreservesBackendMessage(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	}))
	defer srv.Close()

	err := client.InsertRows(context.Background(), "students", []map[string]string{{}}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "23505", apiErr.Code)
	assert.Equal(t, "duplicate key value violates unique constraint", apiErr.Message)
}

func TestTransactionFilterQuery(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ilike.m_%", q.Get("roll_no"))
		assert.Equal(t, "(student_name.ilike.%asha%,receipt_no.ilike.%asha%,roll_no.ilike.%asha%)", q.Get("or"))
		assert.Equal(t, "ilike.__/08/%", q.Get("paid_on"))
		assert.Equal(t, "id.desc", q.Get("order"))
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "100", q.Get("offset"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewTransactionRepo(client).QueryTransactions(context.Background(), fees.TxnFilter{
		Prefix: "m_",
		Search: "asha",
		Month:  8,
		Page:   2,
	})
	require.NoError(t, err)
}

func TestTransactionYearFilter(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "like.%/2026", r.URL.Query().Get("paid_on"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewTransactionRepo(client).QueryTransactions(context.Background(), fees.TxnFilter{Year: 2026})
	require.NoError(t, err)
}

func TestAuthSignIn(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		// sign-in runs with the public key, not the privileged one
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "owner@vintech.example", creds["email"])
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u-1","email":"owner@vintech.example","user_metadata":{"name":"Owner"}}}`))
	}))
	defer srv.Close()

	p, err := NewAuth(client).SignIn(context.Background(), "owner@vintech.example", "pa$$")
	require.NoError(t, err)
	assert.Equal(t, identity.Principal{ID: "u-1", Email: "owner@vintech.example", Name: "Owner"}, p)
}

func TestAuthSignInBadCredentials(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	_, err := NewAuth(client).SignIn(context.Background(), "x@y.z", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestAuthCreateCredentialUsesServiceKey(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["email_confirm"])
		_, _ = w.Write([]byte(`{"id":"u-2","email":"mgr@vintech.example"}`))
	}))
	defer srv.Close()

	p, err := NewAuth(client).CreateCredential(context.Background(), "mgr@vintech.example", "pa$$", "Manager")
	require.NoError(t, err)
	assert.Equal(t, "u-2", p.ID)
}

func TestIdentityRepoNotFound(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.u-404", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewIdentityRepo(client).GetIdentity(context.Background(), "u-404")
	assert.Equal(t, identity.ErrNotFound, err)
}
