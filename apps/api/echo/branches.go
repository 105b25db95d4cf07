package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/student"
)

type branchApi struct {
	identitySvc *identity.Service
	studentSvc  *student.Service
}

func registerBranchAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := branchApi{identitySvc: deps.IdentitySvc, studentSvc: deps.StudentSvc}

	bg := g.Group("/branches", jwt, requireAnyRole(identity.RoleOwner))
	bg.GET("", api.query)
	bg.POST("", api.create)
}

// BranchInfo is one row of the owner's branch overview.
type BranchInfo struct {
	Branch       string              `json:"branch"`
	Prefix       string              `json:"prefix"`
	StudentCount int                 `json:"student_count"`
	Managers     []identity.Identity `json:"managers"`
}

// query assembles the distinct branches from student rows and manager
// identities. A branch with a manager but no students (or the reverse) still
// shows up.
func (api *branchApi) query(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	scope, err := branch.NewScope(branch.All)
	if err != nil {
		return err
	}
	students, err := api.studentSvc.Query(reqCtx, scope)
	if err != nil {
		return err
	}
	managers, err := api.identitySvc.QueryByRole(reqCtx, identity.RoleManager)
	if err != nil {
		return err
	}

	infos := make(map[string]*BranchInfo)
	ensure := func(name string) *BranchInfo {
		if info, ok := infos[name]; ok {
			return info
		}
		info := &BranchInfo{Branch: name, Prefix: branch.Prefix(name), Managers: []identity.Identity{}}
		infos[name] = info
		return info
	}

	for _, s := range students {
		ensure(s.Branch).StudentCount++
	}
	for _, m := range managers {
		if m.Branch == branch.All {
			continue
		}
		info := ensure(m.Branch)
		info.Managers = append(info.Managers, m)
	}

	res := make([]BranchInfo, 0, len(infos))
	for _, info := range infos {
		res = append(res, *info)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Branch < res[j].Branch })
	return ctx.JSON(http.StatusOK, res)
}

// NewBranchRequest opens a branch by provisioning its first manager.
type NewBranchRequest struct {
	Branch  string `json:"branch" validate:"required,branchname,ne=all"`
	Manager struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	} `json:"manager"`
}

func (api *branchApi) create(ctx echo.Context) error {
	data := new(NewBranchRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	data.Branch = core.CleanString(data.Branch, true /* lower */)
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	ni := identity.NewIdentity{
		Name:     data.Manager.Name,
		Email:    data.Manager.Email,
		Role:     identity.RoleManager,
		Branch:   data.Branch,
		Password: data.Manager.Password,
	}
	if err := ni.Validate(core.Validate, core.Translator); err != nil {
		return err
	}

	ident, err := api.identitySvc.Provision(ctx.Request().Context(), ni)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, BranchInfo{
		Branch:   ident.Branch,
		Prefix:   branch.Prefix(ident.Branch),
		Managers: []identity.Identity{ident},
	})
}
