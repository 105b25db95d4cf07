package identity

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
)

// Roles
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

var (
	AllRoles = []string{RoleOwner, RoleManager, RoleStaff}

	rolePriorities = map[string]int{
		RoleOwner:   30,
		RoleManager: 20,
		RoleStaff:   10,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// Identity is the authenticated principal's role+branch scope record. The id
// matches the backend auth credential id; the row lives in the backend
// "users" table.
type Identity struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Branch string `json:"branch"`
}

func (i Identity) IsOwner() bool   { return i.Role == RoleOwner }
func (i Identity) IsManager() bool { return i.Role == RoleManager }
func (i Identity) IsStaff() bool   { return i.Role == RoleStaff }

// Scope resolves the identity's branch visibility; a missing branch fails
// closed with branch.ErrNoScope.
func (i Identity) Scope() (branch.Scope, error) {
	return branch.NewScope(i.Branch)
}

// NewIdentity contains information needed to provision a new Identity along
// with its backend auth credential.
type NewIdentity struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,role"`
	Branch   string `json:"branch" validate:"required,branchname"`
	Password string `json:"password" validate:"required"`
}

func (ni *NewIdentity) Validate(validate *validator.Validate, translator ut.Translator) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Role = core.CleanString(ni.Role, true /* lower */)
	ni.Branch = core.CleanString(ni.Branch, true /* lower */)
	return validate.Struct(ni)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
