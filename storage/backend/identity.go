package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/identity"
)

const identityTable = "users"

// IdentityRepo reads and writes identity rows in the backend "users" table.
type IdentityRepo struct {
	client *Client
}

var _ identity.Repository = (*IdentityRepo)(nil)

func NewIdentityRepo(client *Client) *IdentityRepo {
	return &IdentityRepo{client: client}
}

func (repo *IdentityRepo) GetIdentity(ctx context.Context, id string) (identity.Identity, error) {
	var ident identity.Identity
	err := repo.client.GetRow(ctx, Query{
		Table:   identityTable,
		Filters: []Filter{Eq("id", id)},
	}, &ident)
	if errors.Cause(err) == ErrNoRow {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, err
}

func (repo *IdentityRepo) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	var ident identity.Identity
	err := repo.client.GetRow(ctx, Query{
		Table:   identityTable,
		Filters: []Filter{Eq("email", email)},
	}, &ident)
	if errors.Cause(err) == ErrNoRow {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, err
}

func (repo *IdentityRepo) QueryIdentities(ctx context.Context) ([]identity.Identity, error) {
	var idents []identity.Identity
	err := repo.client.QueryRows(ctx, Query{
		Table: identityTable,
		Order: "name.asc",
	}, &idents)
	return idents, err
}

func (repo *IdentityRepo) QueryIdentitiesByRole(ctx context.Context, role string) ([]identity.Identity, error) {
	var idents []identity.Identity
	err := repo.client.QueryRows(ctx, Query{
		Table:   identityTable,
		Filters: []Filter{Eq("role", role)},
		Order:   "name.asc",
	}, &idents)
	return idents, err
}

func (repo *IdentityRepo) CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	var created []identity.Identity
	if err := repo.client.InsertRows(ctx, identityTable, []identity.Identity{ident}, &created); err != nil {
		return identity.Identity{}, err
	}
	if len(created) == 0 {
		return identity.Identity{}, errors.New("backend returned no inserted identity")
	}
	return created[0], nil
}
