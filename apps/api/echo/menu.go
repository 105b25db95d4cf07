package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core/identity"
)

// MenuEntry is one sidebar item the frontend renders for the caller's role.
type MenuEntry struct {
	Name  string `json:"name"`
	Route string `json:"route"`
}

var menuConfig = map[string][]MenuEntry{
	identity.RoleOwner: {
		{Name: "Dashboard", Route: "/dashboard"},
		{Name: "Manage Branches", Route: "/branches"},
		{Name: "Revenue Analysis", Route: "/revenue"},
		{Name: "Student Performance", Route: "/performance"},
		{Name: "Add and View Students", Route: "/students"},
		{Name: "Manage Fees", Route: "/fees"},
		{Name: "Fees Status", Route: "/status"},
	},
	identity.RoleManager: {
		{Name: "Dashboard", Route: "/dashboard"},
		{Name: "Revenue Analysis", Route: "/revenue"},
		{Name: "Student Performance", Route: "/performance"},
		{Name: "Add and View Students", Route: "/students"},
		{Name: "Manage Fees", Route: "/fees"},
		{Name: "Fees Status", Route: "/status"},
	},
	identity.RoleStaff: {
		{Name: "Dashboard", Route: "/dashboard"},
		{Name: "Student Performance", Route: "/performance"},
	},
}

func registerMenuAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.GET("/menu", menu, jwt)
}

func menu(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	entries, ok := menuConfig[claims.Role]
	if !ok {
		entries = []MenuEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
