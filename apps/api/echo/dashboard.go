package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core/fees"
)

type dashboardApi struct {
	service *fees.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := dashboardApi{service: deps.FeesSvc}
	g.GET("/dashboard", api.stats, jwt)
}

// stats serves the six dashboard cards. Available to every role; a failed
// aggregate degrades to zero instead of failing the screen.
func (api *dashboardApi) stats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.service.Dashboard(ctx.Request().Context()))
}
