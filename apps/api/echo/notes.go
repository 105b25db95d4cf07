package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/note"
)

type noteApi struct {
	service *note.Service
}

func registerNoteAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := noteApi{service: deps.NoteSvc}

	ng := g.Group("/notes", jwt)
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.PUT("/:id", api.update)
	ng.DELETE("/:id", api.destroy)
}

func (api *noteApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	notes, err := api.service.Query(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *noteApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	data := new(note.NewNote)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(core.Validate, core.Translator); err != nil {
		return err
	}

	n, err := api.service.Create(ctx.Request().Context(), claims.Subject, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noteApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHTTPNotFound
	}

	data := new(note.UpdateNote)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	n, err := api.service.Update(ctx.Request().Context(), claims.Subject, id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHTTPNotFound
	}

	if err := api.service.Delete(ctx.Request().Context(), claims.Subject, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
