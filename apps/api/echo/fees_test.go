package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/student"
)

func seedTransactions(t *testing.T, app *testApp, txns ...fees.Transaction) []fees.Transaction {
	t.Helper()
	created := make([]fees.Transaction, 0, len(txns))
	for _, txn := range txns {
		c, err := app.db.Transactions.CreateTransaction(context.Background(), txn)
		if err != nil {
			t.Fatalf("seedTransactions() failed: %v", err)
		}
		created = append(created, c)
	}
	return created
}

func TestFeesRecordPayment(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	body := marchallObj(t, map[string]interface{}{
		"roll":    "m_1",
		"student": "asha",
		"father":  "ravi",
		"amount":  1500,
		"receipt": "RC-100",
		"paid_on": "2026-08-05",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/fees/payments", getToken(t, manager), body)
	app.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var txn fees.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.NotZero(t, txn.ID)
	assert.Equal(t, "05/08/2026", txn.PaidOn) // stored as day/month/year text

	// the write-through snapshot reached the sheet
	require.Len(t, app.legacy.snapshots, 1)
	snap := app.legacy.snapshots[0]
	assert.Equal(t, "m_1", snap.RollNumber)
	assert.Equal(t, 1500.0, snap.LastAmountPaid)
	assert.Equal(t, "05/08/2026", snap.LastPaid)
}

func TestFeesRecordPaymentOutsideBranch(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	body := marchallObj(t, map[string]interface{}{
		"roll":    "s_1",
		"student": "vijay",
		"amount":  500,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/fees/payments", getToken(t, manager), body)
	app.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"roll":"roll number is outside your branch"}`, rec.Body.String())
	assert.Empty(t, app.legacy.snapshots)
}

func TestFeesLookup(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	s := student.Student{RollNumber: "m_1", StudentName: "asha", FatherName: "ravi", Course: "tally", Branch: "main"}
	seedStudents(t, app, s)
	txns := seedTransactions(t, app,
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 500, PaidOn: "01/07/2026"},
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 700, PaidOn: "01/08/2026"},
	)

	req, rec := newAuthRequest(http.MethodGet, "/v1/fees/lookup/m_1", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp lookupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Found)
	assert.Equal(t, s, *resp.Student)
	assert.Equal(t, txns[1], *resp.LastPayment) // newest

	// unknown roll clears the form instead of failing
	req, rec = newAuthRequest(http.MethodGet, "/v1/fees/lookup/m_99", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"found":false}`, rec.Body.String())
}

func TestFeesTransactionsScoping(t *testing.T) {
	app := newTestApp(t)
	owner := app.createIdentity(t, "Owner", "owner@vintech.example", identity.RoleOwner, "all")
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	txns := seedTransactions(t, app,
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 500, ReceiptNo: "RC-1", PaidOn: "05/07/2026"},
		fees.Transaction{RollNo: "m_2", StudentName: "kiran", AmountPaid: 700, ReceiptNo: "RC-2", PaidOn: "10/08/2026"},
		fees.Transaction{RollNo: "s_1", StudentName: "vijay", AmountPaid: 900, ReceiptNo: "RC-3", PaidOn: "12/08/2026"},
	)

	tests := []httpTest{
		{
			name:     "manager sees own branch newest first",
			method:   http.MethodGet,
			path:     "/v1/fees/transactions",
			token:    getToken(t, manager),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []fees.Transaction{txns[1], txns[0]}),
		},
		{
			name:     "owner sees every branch",
			method:   http.MethodGet,
			path:     "/v1/fees/transactions",
			token:    getToken(t, owner),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []fees.Transaction{txns[2], txns[1], txns[0]}),
		},
		{
			name:     "owner narrows via selector",
			method:   http.MethodGet,
			path:     "/v1/fees/transactions?branch=second",
			token:    getToken(t, owner),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []fees.Transaction{txns[2]}),
		},
		{
			name:     "search matches name, receipt and roll",
			method:   http.MethodGet,
			path:     "/v1/fees/transactions?search=RC-2",
			token:    getToken(t, owner),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []fees.Transaction{txns[1]}),
		},
		{
			name:     "month and year filter the paid_on text",
			method:   http.MethodGet,
			path:     "/v1/fees/transactions?month=8&year=2026",
			token:    getToken(t, manager),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []fees.Transaction{txns[1]}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestFeesHistory(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	txns := seedTransactions(t, app,
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 500, PaidOn: "01/07/2026"},
		fees.Transaction{RollNo: "m_2", StudentName: "kiran", AmountPaid: 700, PaidOn: "01/08/2026"},
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 600, PaidOn: "01/08/2026"},
	)

	req, rec := newAuthRequest(http.MethodGet, "/v1/fees/history/m_1", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	want := marchallObj(t, []fees.Transaction{txns[2], txns[0]})
	assert.JSONEq(t, string(want), rec.Body.String())

	// a roll outside the branch reads as empty history
	req, rec = newAuthRequest(http.MethodGet, "/v1/fees/history/s_1", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestFeesLegacyHistory(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")
	app.legacy.history["m_1"] = fees.LegacyHistory{
		Exists: true,
		Fees:   map[string]float64{"01/05/2024": 500, "01/06/2024": 500},
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/fees/legacy-history/m_1", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":true,"fees":{"01/05/2024":500,"01/06/2024":500}}`, rec.Body.String())

	// unknown rolls answer exists=false with an empty map
	req, rec = newAuthRequest(http.MethodGet, "/v1/fees/legacy-history/m_2", getToken(t, manager))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":false,"fees":{}}`, rec.Body.String())
}

func TestFeesStatusCaching(t *testing.T) {
	app := newTestApp(t)
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")
	token := getToken(t, manager)

	get := func(path string) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	get("/v1/fees/status")
	get("/v1/fees/status")
	assert.Equal(t, 1, app.legacy.statusCalls, "second read should hit the cache")

	get("/v1/fees/status?refresh=true")
	assert.Equal(t, 2, app.legacy.statusCalls, "refresh must bypass the cache")

	// recording a payment invalidates cached standing
	body := marchallObj(t, map[string]interface{}{"roll": "m_1", "student": "asha", "amount": 500})
	req, rec := newAuthRequest(http.MethodPost, "/v1/fees/payments", token, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	get("/v1/fees/status")
	assert.Equal(t, 3, app.legacy.statusCalls)
}

func TestFeesStatusBranchSelection(t *testing.T) {
	app := newTestApp(t)
	owner := app.createIdentity(t, "Owner", "owner@vintech.example", identity.RoleOwner, "all")
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "second")

	rows := func(t *testing.T, token, path string) []fees.StatusRow {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res []fees.StatusRow
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res
	}

	// unrestricted callers default to the main branch
	got := rows(t, getToken(t, owner), "/v1/fees/status")
	require.NotEmpty(t, got)
	assert.Equal(t, "m_1", got[0].RollNumber)

	// and may pick one explicitly
	got = rows(t, getToken(t, owner), "/v1/fees/status?branch=second")
	require.NotEmpty(t, got)
	assert.Equal(t, "s_1", got[0].RollNumber)

	// restricted callers cannot escape their own branch via the selector
	got = rows(t, getToken(t, manager), "/v1/fees/status?branch=main")
	require.NotEmpty(t, got)
	assert.Equal(t, "s_1", got[0].RollNumber)
}

func TestFeesTransactionCorrectionsOwnerOnly(t *testing.T) {
	app := newTestApp(t)
	owner := app.createIdentity(t, "Owner", "owner@vintech.example", identity.RoleOwner, "all")
	manager := app.createIdentity(t, "Manager", "mgr@vintech.example", identity.RoleManager, "main")

	txns := seedTransactions(t, app,
		fees.Transaction{RollNo: "m_1", StudentName: "asha", AmountPaid: 500, PaidOn: "01/08/2026"},
	)

	body := marchallObj(t, map[string]interface{}{"amount_paid": 550})
	req, rec := newAuthRequest(http.MethodPut, "/v1/fees/transactions/1", getToken(t, manager), body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/fees/transactions/1", getToken(t, owner), body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got fees.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 550.0, got.AmountPaid)
	assert.Equal(t, txns[0].PaidOn, got.PaidOn) // untouched fields survive

	req, rec = newAuthRequest(http.MethodDelete, "/v1/fees/transactions/1", getToken(t, owner))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/fees/transactions/nope", getToken(t, owner))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
