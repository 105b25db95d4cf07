package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/student"
)

type studentApi struct {
	service *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := studentApi{service: deps.StudentSvc}

	sg := g.Group("/students", jwt, requireAnyRole(identity.RoleOwner, identity.RoleManager))
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:roll", api.retrieve)
	sg.PUT("/:roll", api.update)
	sg.DELETE("/:roll", api.destroy)
}

type studentListResponse struct {
	Students []student.Student `json:"students"`
	// Grouped is set for the unrestricted cross-branch view only.
	Grouped map[string][]student.Student `json:"grouped,omitempty"`
}

func (api *studentApi) query(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	students, err := api.service.Query(ctx.Request().Context(), scope)
	if err != nil {
		return err
	}

	resp := studentListResponse{Students: students}
	if scope.All() {
		resp.Grouped = student.Grouped(students)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// create batch-inserts the multi-row admission form.
func (api *studentApi) create(ctx echo.Context) error {
	var rows []student.NewStudent
	if err := ctx.Bind(&rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "students", Error: "at least one student is required"})
	}

	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	for i := range rows {
		if err := rows[i].Validate(core.Validate, core.Translator); err != nil {
			return err
		}
		// restricted callers may only admit into their own branch
		if !scope.All() && rows[i].Branch != scope.Branch() {
			return core.NewValidationError(nil, core.FieldError{Field: "branch", Error: "branch is outside your scope"})
		}
	}

	students, err := api.service.Create(ctx.Request().Context(), rows)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	s, err := api.service.Get(ctx.Request().Context(), scope, ctx.Param("roll"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	data := new(student.UpdateStudent)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	s, err := api.service.Update(ctx.Request().Context(), scope, ctx.Param("roll"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	if err := api.service.Delete(ctx.Request().Context(), scope, ctx.Param("roll")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
