package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grading"
)

type gradingApi struct {
	svc      *grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grading.Service, validate *validator.Validate) {
	api := gradingApi{svc: svc, validate: validate}

	gg := g.Group("/grading-scales", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.GET("/default", api.retrieveDefault)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id/default", api.setDefault)
}

// Handlers

func (api *gradingApi) create(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data grading.NewScale
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScale")
	}
	data.SchoolID = schoolID
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	scale, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grading scale")
	}
	return ctx.JSON(http.StatusCreated, scale)
}

func (api *gradingApi) query(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	scales, err := api.svc.Query(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "querying grading scales")
	}
	return ctx.JSON(http.StatusOK, scales)
}

func (api *gradingApi) retrieveDefault(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	scale, err := api.svc.GetDefault(ctx.Request().Context(), schoolID)
	if err != nil {
		if errors.Cause(err) == grading.ErrNoGradingScale {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting default grading scale")
	}
	return ctx.JSON(http.StatusOK, scale)
}

func (api *gradingApi) retrieve(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	scale, err := api.svc.Get(ctx.Request().Context(), schoolID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grading scale")
	}
	return ctx.JSON(http.StatusOK, scale)
}

func (api *gradingApi) setDefault(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	scale, err := api.svc.SetDefault(ctx.Request().Context(), schoolID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "setting default grading scale")
	}
	return ctx.JSON(http.StatusOK, scale)
}
