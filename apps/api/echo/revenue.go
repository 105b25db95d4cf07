package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
)

type revenueApi struct {
	service *fees.Service
}

func registerRevenueAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := revenueApi{service: deps.FeesSvc}
	g.GET("/revenue", api.report, jwt, requireAnyRole(identity.RoleOwner, identity.RoleManager))
}

func (api *revenueApi) report(ctx echo.Context) error {
	now := time.Now()
	year, err := strconv.Atoi(ctx.QueryParam("year"))
	if err != nil || year <= 0 {
		year = now.Year()
	}
	month, err := strconv.Atoi(ctx.QueryParam("month"))
	if err != nil || month < 1 || month > 12 {
		month = int(now.Month())
	}

	rpt, err := api.service.Revenue(ctx.Request().Context(), year, month)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rpt)
}
