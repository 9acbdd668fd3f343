package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/instance"
)

type instanceApi struct {
	svc      *instance.Service
	validate *validator.Validate
}

func registerInstanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *instance.Service, validate *validator.Validate) {
	api := instanceApi{svc: svc, validate: validate}

	ig := g.Group("/instances", jwt)
	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/active", api.retrieveActive)

	// detail endpoints
	ig.GET("/:id", api.retrieve)
	ig.POST("/:id/archive", api.archive)
	ig.DELETE("/:id", api.destroy)
}

// Handlers

func (api *instanceApi) create(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data instance.NewInstance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstance")
	}
	data.SchoolID = schoolID
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inst, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating results instance")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *instanceApi) query(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var filter instance.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	filter.SchoolID = schoolID

	instances, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying results instances")
	}
	return ctx.JSON(http.StatusOK, instances)
}

func (api *instanceApi) retrieveActive(ctx echo.Context) error {
	scope, err := bindScope(ctx, api.validate)
	if err != nil {
		return err
	}
	inst, err := api.svc.GetActive(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "getting active results instance")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *instanceApi) retrieve(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	inst, err := api.svc.Get(ctx.Request().Context(), schoolID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting results instance")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *instanceApi) archive(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	inst, err := api.svc.Archive(ctx.Request().Context(), schoolID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "archiving results instance")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *instanceApi) destroy(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), schoolID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting results instance")
	}
	return ctx.NoContent(http.StatusNoContent)
}
