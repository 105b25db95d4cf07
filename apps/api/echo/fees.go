package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/fees"
	"github.com/vintech/portal/core/identity"
	"github.com/vintech/portal/core/student"
)

type feesApi struct {
	service    *fees.Service
	studentSvc *student.Service
}

func registerFeesAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := feesApi{service: deps.FeesSvc, studentSvc: deps.StudentSvc}

	fg := g.Group("/fees", jwt, requireAnyRole(identity.RoleOwner, identity.RoleManager))
	fg.POST("/payments", api.recordPayment)
	fg.GET("/lookup/:roll", api.lookup)
	fg.GET("/history/:roll", api.history)
	fg.GET("/legacy-history/:roll", api.legacyHistory)
	fg.GET("/transactions", api.transactions)
	fg.GET("/status", api.status)

	// transaction corrections are owner-only
	og := fg.Group("/transactions/:id", requireAnyRole(identity.RoleOwner))
	og.PUT("", api.updateTransaction)
	og.DELETE("", api.deleteTransaction)
}

func (api *feesApi) recordPayment(ctx echo.Context) error {
	data := new(fees.NewPayment)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(core.Validate, core.Translator); err != nil {
		return err
	}

	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	txn, err := api.service.RecordPayment(ctx.Request().Context(), scope, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, txn)
}

type lookupResponse struct {
	Found       bool              `json:"found"`
	Student     *student.Student  `json:"student,omitempty"`
	LastPayment *fees.Transaction `json:"last_payment,omitempty"`
}

// lookup prefills the payment form: the student row plus their most recent
// transaction. An unknown roll answers found=false, never an error.
func (api *feesApi) lookup(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	roll := ctx.Param("roll")

	s, err := api.studentSvc.Get(ctx.Request().Context(), scope, roll)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return ctx.JSON(http.StatusOK, lookupResponse{Found: false})
		}
		return err
	}

	resp := lookupResponse{Found: true, Student: &s}
	if last, err := api.service.LastPayment(ctx.Request().Context(), scope, roll); err == nil {
		resp.LastPayment = &last
	} else if errors.Cause(err) != fees.ErrNotFound {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *feesApi) history(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(ctx.QueryParam("page"))

	txns, err := api.service.History(ctx.Request().Context(), scope, ctx.Param("roll"), page)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, txns)
}

func (api *feesApi) legacyHistory(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	h, err := api.service.LegacyHistory(ctx.Request().Context(), scope, ctx.Param("roll"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *feesApi) transactions(ctx echo.Context) error {
	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}

	f := fees.TxnFilter{Search: core.CleanString(ctx.QueryParam("search"))}
	f.Month, _ = strconv.Atoi(ctx.QueryParam("month"))
	f.Year, _ = strconv.Atoi(ctx.QueryParam("year"))
	f.Page, _ = strconv.Atoi(ctx.QueryParam("page"))

	txns, err := api.service.Transactions(ctx.Request().Context(), scope, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, txns)
}

func (api *feesApi) status(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	scope, err := claims.scope()
	if err != nil {
		return err
	}
	refresh, _ := strconv.ParseBool(ctx.QueryParam("refresh"))

	rows, err := api.service.Status(ctx.Request().Context(), scope, ctx.QueryParam("branch"), refresh)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *feesApi) updateTransaction(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHTTPNotFound
	}

	data := new(fees.UpdateTransaction)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	txn, err := api.service.Update(ctx.Request().Context(), scope, id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, txn)
}

func (api *feesApi) deleteTransaction(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHTTPNotFound
	}

	scope, err := getContextScope(ctx)
	if err != nil {
		return err
	}
	if err := api.service.Delete(ctx.Request().Context(), scope, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
