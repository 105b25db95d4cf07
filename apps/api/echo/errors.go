package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/branch"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/note"
	"github.com/vintech/portal/core/student"
	"github.com/vintech/portal/storage/backend"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errNotProvisioned = echo.NewHTTPError(http.StatusForbidden, "account has no provisioned identity")
	errNoScope        = echo.NewHTTPError(http.StatusForbidden, "no branch scope")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler that knows our
// error taxonomy. signalShutdown is invoked when a core shutdown error is
// caught so the server can stop gracefully.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *backend.APIError:
			// surface the backend's own message verbatim
			code = origErr.StatusCode
			message = origErr.Message
		case *identity.OrphanedCredentialError:
			code = http.StatusConflict
			message = origErr.Error()
		default:
			switch cause {
			case identity.ErrNotProvisioned:
				code = errNotProvisioned.Code
				message = errNotProvisioned.Message
			case branch.ErrNoScope:
				code = errNoScope.Code
				message = errNoScope.Message
			case student.ErrNotFound, fees.ErrNotFound, note.ErrNotFound, identity.ErrNotFound, backend.ErrNoRow:
				code = errHTTPNotFound.Code
				message = errHTTPNotFound.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var ident identity.Identity
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					ident.ID = claims.Subject
					ident.Name = claims.Name
					ident.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), ident)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
