package echoapi

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errNoActiveInstance = errors.New("no active results instance for this class, session and term")

type resultsApi struct {
	svc       *results.Service
	instances *instance.Service
	validate  *validator.Validate
}

func registerResultsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *results.Service,
	instances *instance.Service,
	validate *validator.Validate,
) {
	api := resultsApi{svc: svc, instances: instances, validate: validate}

	rg := g.Group("/results", jwt)
	rg.POST("/import", api.importFile)
	rg.POST("/recompute", api.recompute)
	rg.GET("", api.query)
	rg.GET("/broadsheet", api.broadsheet)
	rg.GET("/:student_id", api.retrieve)
}

// ImportParams are the form fields sent along the gradebook file.
type ImportParams struct {
	ScopeParams
	DaysSchoolOpen int `form:"days_school_open" query:"days_school_open"`
}

// Handlers

func (api *resultsApi) importFile(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var params ImportParams
	if err = ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to ImportParams")
	}
	scope := params.scope(schoolID)
	if err = api.validate.Struct(scope); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	format := results.FormatFromFilename(fh.Filename)

	reqCtx := ctx.Request().Context()
	inst, err := api.instances.GetActive(reqCtx, scope)
	if err != nil {
		if errors.Cause(err) == instance.ErrNotFound {
			return core.NewValidationError(errNoActiveInstance)
		}
		return errors.Wrap(err, "getting active results instance")
	}

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = file.Close() }()

	summary, err := api.svc.Import(reqCtx, inst.ImportRequest(format, params.DaysSchoolOpen), file)
	if err != nil {
		return errors.Wrap(err, "importing results")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *resultsApi) recompute(ctx echo.Context) error {
	scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	records, err := api.svc.Recompute(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "recomputing results")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *resultsApi) query(ctx echo.Context) error {
	scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	records, err := api.svc.Query(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *resultsApi) retrieve(ctx echo.Context) error {
	scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	res, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultsApi) broadsheet(ctx echo.Context) error {
	scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = api.svc.Broadsheet(ctx.Request().Context(), scope, &buf); err != nil {
		return errors.Wrap(err, "writing broadsheet")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="broadsheet.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
