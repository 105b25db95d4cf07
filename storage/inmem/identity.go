package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vintech/portal/core/identity"
)

type IdentityRepo struct {
	db   *DB
	rows []identity.Identity
}

var _ identity.Repository = (*IdentityRepo)(nil)

func (repo *IdentityRepo) GetIdentity(_ context.Context, id string) (identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, ident := range repo.rows {
		if ident.ID == id {
			return ident, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *IdentityRepo) GetIdentityByEmail(_ context.Context, email string) (identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, ident := range repo.rows {
		if ident.Email == email {
			return ident, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *IdentityRepo) QueryIdentities(_ context.Context) ([]identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	res := append([]identity.Identity(nil), repo.rows...)
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (repo *IdentityRepo) QueryIdentitiesByRole(_ context.Context, role string) ([]identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	var res []identity.Identity
	for _, ident := range repo.rows {
		if ident.Role == role {
			res = append(res, ident)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (repo *IdentityRepo) CreateIdentity(_ context.Context, ident identity.Identity) (identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	repo.rows = append(repo.rows, ident)
	return ident, nil
}
