package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/core/identity"
)

var (
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "identityToken",
		Claims:        new(Claims),
	}
	jwtIssuer            string
	jwtExpirationDelta   time.Duration
	jwtRefreshExpiration time.Duration
)

// configureAuth primes the JWT middleware from config and returns it.
func configureAuth(conf *core.Config) echo.MiddlewareFunc {
	appJWTConfig.SigningKey = []byte(conf.SecretKey)
	jwtIssuer = conf.AppName
	jwtExpirationDelta = conf.Server.JWTExpirationDelta
	jwtRefreshExpiration = conf.Server.JWTRefreshExpirationDelta
	return middleware.JWTWithConfig(appJWTConfig)
}

// Claims are the authorization claims transmitted via a JWT. Role and Branch
// are carried in the token so scoping needs no identity lookup per request.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	Branch       string `json:"branch,omitempty"`
}

func (c Claims) isOwner() bool   { return c.Role == identity.RoleOwner }
func (c Claims) isManager() bool { return c.Role == identity.RoleManager }

// scope resolves the claims' branch visibility, failing closed on a token
// without a branch.
func (c Claims) scope() (branch.Scope, error) {
	return branch.NewScope(c.Branch)
}

func GetIdentityClaims(ident identity.Identity, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    jwtIssuer,
			Subject:   ident.ID,
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         ident.Name,
		Email:        ident.Email,
		Role:         ident.Role,
		Branch:       ident.Branch,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextScope resolves the caller's branch scope, optionally narrowed by
// the ?branch= selector (effective for the unrestricted scope only).
func getContextScope(ctx echo.Context) (branch.Scope, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return branch.Scope{}, err
	}
	scope, err := claims.scope()
	if err != nil {
		return branch.Scope{}, err
	}
	return scope.Narrow(ctx.QueryParam("branch")), nil
}
