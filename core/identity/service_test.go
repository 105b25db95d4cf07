package identity

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintech/portal/core"
)

type fakeRepo struct {
	rows      map[string]Identity // id -> row
	createErr error
}

func (r *fakeRepo) GetIdentity(_ context.Context, id string) (Identity, error) {
	if ident, ok := r.rows[id]; ok {
		return ident, nil
	}
	return Identity{}, ErrNotFound
}

func (r *fakeRepo) GetIdentityByEmail(_ context.Context, email string) (Identity, error) {
	for _, ident := range r.rows {
		if ident.Email == email {
			return ident, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (r *fakeRepo) QueryIdentities(context.Context) ([]Identity, error) { return nil, nil }
func (r *fakeRepo) QueryIdentitiesByRole(context.Context, string) ([]Identity, error) {
	return nil, nil
}

func (r *fakeRepo) CreateIdentity(_ context.Context, ident Identity) (Identity, error) {
	if r.createErr != nil {
		return Identity{}, r.createErr
	}
	if r.rows == nil {
		r.rows = make(map[string]Identity)
	}
	r.rows[ident.ID] = ident
	return ident, nil
}

type fakeAuth struct {
	principal Principal
	signInErr error
}

func (a *fakeAuth) SignIn(context.Context, string, string) (Principal, error) {
	return a.principal, a.signInErr
}

func (a *fakeAuth) CreateCredential(_ context.Context, email, _, name string) (Principal, error) {
	return Principal{ID: "u-new", Email: email, Name: name}, nil
}

func TestLogin(t *testing.T) {
	repo := &fakeRepo{rows: map[string]Identity{
		"u-1": {ID: "u-1", Email: "mgr@vintech.example", Name: "Mgr", Role: RoleManager, Branch: "main"},
	}}
	auth := &fakeAuth{principal: Principal{ID: "u-1", Email: "mgr@vintech.example"}}
	svc := NewService(repo, auth, nil, &core.Config{})

	ident, err := svc.Login(context.Background(), "mgr@vintech.example", "pwd")
	require.NoError(t, err)
	assert.Equal(t, "main", ident.Branch)
	assert.Equal(t, RoleManager, ident.Role)
}

// A valid credential whose identity row is missing must be rejected outright,
// not treated as unrestricted.
func TestLoginMissingIdentityRowFailsClosed(t *testing.T) {
	auth := &fakeAuth{principal: Principal{ID: "u-ghost", Email: "ghost@vintech.example"}}
	svc := NewService(&fakeRepo{}, auth, nil, &core.Config{})

	_, err := svc.Login(context.Background(), "ghost@vintech.example", "pwd")
	assert.Equal(t, ErrNotProvisioned, errors.Cause(err))
}

func TestLoginBadCredential(t *testing.T) {
	auth := &fakeAuth{signInErr: errors.New("invalid login credentials")}
	svc := NewService(&fakeRepo{}, auth, nil, &core.Config{})

	_, err := svc.Login(context.Background(), "mgr@vintech.example", "nope")
	assert.EqualError(t, err, "invalid login credentials")
}

func TestProvision(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &fakeAuth{}, nil, &core.Config{})

	ident, err := svc.Provision(context.Background(), NewIdentity{
		Name: "Mgr", Email: "mgr@vintech.example", Role: RoleManager, Branch: "second", Password: "G00d&proper",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-new", ident.ID)
	assert.Equal(t, "second", ident.Branch)
}

func TestProvisionDuplicateEmail(t *testing.T) {
	repo := &fakeRepo{rows: map[string]Identity{
		"u-1": {ID: "u-1", Email: "mgr@vintech.example"},
	}}
	svc := NewService(repo, &fakeAuth{}, nil, &core.Config{})

	_, err := svc.Provision(context.Background(), NewIdentity{
		Name: "Dup", Email: "mgr@vintech.example", Role: RoleManager, Branch: "main", Password: "G00d&proper",
	})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

// When the credential lands but the identity insert fails, the caller gets
// the recoverable orphaned state, not a generic failure.
func TestProvisionOrphanedCredential(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	svc := NewService(repo, &fakeAuth{}, nil, &core.Config{})

	_, err := svc.Provision(context.Background(), NewIdentity{
		Name: "Mgr", Email: "mgr@vintech.example", Role: RoleManager, Branch: "main", Password: "G00d&proper",
	})
	var oErr *OrphanedCredentialError
	require.ErrorAs(t, err, &oErr)
	assert.Equal(t, "mgr@vintech.example", oErr.Email)
}
