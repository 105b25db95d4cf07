package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/identity"
)

type authApi struct {
	service *identity.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := authApi{service: deps.IdentitySvc}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)

	authed := ag.Group("", jwt)
	authed.POST("/token-refresh", api.tokenRefresh)
	authed.GET("/me", api.me)
}

type LoginResponse struct {
	Token    string            `json:"token"`
	Identity identity.Identity `json:"identity"`
}

func (api *authApi) login(ctx echo.Context) error {
	data := new(identity.LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(core.Validate); err != nil {
		return err
	}

	ident, err := api.service.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}

	token, err := GenerateToken(GetIdentityClaims(ident))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Identity: ident})
}

// tokenRefresh issues a fresh token as long as the original sign-in is within
// the refresh window.
func (api *authApi) tokenRefresh(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpiration).Before(time.Now()) {
		return errRefreshExpired
	}

	// re-read the identity row so a role or branch change takes effect
	ident, err := api.service.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetIdentityClaims(ident, claims.OrigIssuedAt))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Identity: ident})
}

func (api *authApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ident, err := api.service.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ident)
}

type userApi struct {
	service *identity.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := userApi{service: deps.IdentitySvc}

	ug := g.Group("/users", jwt, requireAnyRole(identity.RoleOwner))
	ug.GET("", api.query)
	ug.POST("", api.provision)
}

func (api *userApi) query(ctx echo.Context) error {
	if role := ctx.QueryParam("role"); role != "" {
		idents, err := api.service.QueryByRole(ctx.Request().Context(), role)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, idents)
	}
	idents, err := api.service.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, idents)
}

func (api *userApi) provision(ctx echo.Context) error {
	data := new(identity.NewIdentity)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(core.Validate, core.Translator); err != nil {
		return err
	}

	ident, err := api.service.Provision(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ident)
}
