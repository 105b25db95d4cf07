package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/note"
	"github.com/vintech/portal/core/student"
	emailsvc "github.com/vintech/portal/services/email"
	"github.com/vintech/portal/storage/backend"
	"github.com/vintech/portal/storage/inmem"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	initValidatorsOnce sync.Once
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func testConfig() *core.Config {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "Vintech Portal",
		Env:       "TEST",
		SecretKey: "secret",
	}
	conf.Server.Addr = ":0"
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	conf.StatusCacheTTL = 5 * time.Minute
	return conf
}

// fakeAuth is an in-memory identity.Authenticator.
type fakeAuth struct {
	mu        sync.Mutex
	passwords map[string]string             // email -> password
	accounts  map[string]identity.Principal // email -> principal
	nextID    int
}

var _ identity.Authenticator = (*fakeAuth)(nil)

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		passwords: make(map[string]string),
		accounts:  make(map[string]identity.Principal),
	}
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) (identity.Principal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pwd, ok := a.passwords[email]; !ok || pwd != password {
		// shaped like the backend's own rejection
		return identity.Principal{}, &backend.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return a.accounts[email], nil
}

func (a *fakeAuth) CreateCredential(_ context.Context, email, password, name string) (identity.Principal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	p := identity.Principal{ID: "u-" + string(rune('0'+a.nextID)), Email: email, Name: name}
	a.passwords[email] = password
	a.accounts[email] = p
	return p, nil
}

// fakeLegacy stands in for the spreadsheet script.
type fakeLegacy struct {
	mu          sync.Mutex
	snapshots   []fees.Snapshot
	history     map[string]fees.LegacyHistory
	statusCalls int
}

func (g *fakeLegacy) WriteSnapshot(_ context.Context, snap fees.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshots = append(g.snapshots, snap)
	return nil
}

func (g *fakeLegacy) FeeHistory(_ context.Context, roll string) (fees.LegacyHistory, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.history[roll]; ok {
		return h, nil
	}
	return fees.LegacyHistory{Fees: map[string]float64{}}, nil
}

func (g *fakeLegacy) BranchStatus(_ context.Context, branchName string) ([]fees.StatusRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	return []fees.StatusRow{{RollNumber: branch.Prefix(branchName) + "1", StudentName: "asha", Status: "paid"}}, nil
}

// fakeAgg serves fixed aggregate values.
type fakeAgg struct{}

func (fakeAgg) MonthlyRevenue(context.Context, int, int) (float64, error) { return 42000, nil }
func (fakeAgg) PendingFeesByBranch(context.Context) (map[string]float64, error) {
	return map[string]float64{"main": 1500}, nil
}
func (fakeAgg) CountActiveStudents(context.Context) (int, error) { return 87, nil }
func (fakeAgg) CountBranches(context.Context) (int, error)       { return 2, nil }
func (fakeAgg) CountCourses(context.Context) (int, error)        { return 9, nil }
func (fakeAgg) CountOpenEnquiries(context.Context) (int, error)  { return 3, nil }

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	server Server
	db     *inmem.DB
	auth   *fakeAuth
	legacy *fakeLegacy
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	initValidatorsOnce.Do(func() {
		identity.InitValidators(core.Validate, core.Translator)
	})

	conf := testConfig()
	db := inmem.NewDB()
	auth := newFakeAuth()
	legacy := &fakeLegacy{history: make(map[string]fees.LegacyHistory)}
	mailSvc := emailsvc.NewConsoleService(conf)

	deps := &ServerDeps{
		Conf:        conf,
		Logger:      nopLogger{},
		IdentitySvc: identity.NewService(db.Identities, auth, mailSvc, conf),
		StudentSvc:  student.NewService(db.Students),
		FeesSvc:     fees.NewService(db.Transactions, legacy, fakeAgg{}, nopLogger{}, conf),
		NoteSvc:     note.NewService(db.Notes),
	}
	return &testApp{
		server: NewServer(deps),
		db:     db,
		auth:   auth,
		legacy: legacy,
	}
}

func (app *testApp) createIdentity(t *testing.T, name, email, role, branchName string) identity.Identity {
	t.Helper()
	p, err := app.auth.CreateCredential(context.Background(), email, "S3cret!pass", name)
	if err != nil {
		t.Fatalf("createIdentity() failed: %v", err)
	}
	ident, err := app.db.Identities.CreateIdentity(context.Background(), identity.Identity{
		ID:     p.ID,
		Email:  email,
		Name:   name,
		Role:   role,
		Branch: branchName,
	})
	if err != nil {
		t.Fatalf("createIdentity() failed: %v", err)
	}
	return ident
}

func getToken(t *testing.T, ident identity.Identity) string {
	t.Helper()
	token, err := GenerateToken(GetIdentityClaims(ident))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	t.Helper()
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("%s: got status %d, want %d; body: %s", tt.name, rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	eq, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Fatalf("%s: jsonBytesEqual() failed: %v", tt.name, err)
	}
	if !eq {
		t.Errorf("%s:\n got: %s\nwant: %s", tt.name, rec.Body.String(), tt.wantData)
	}
}
