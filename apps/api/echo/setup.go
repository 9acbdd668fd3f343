package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
)

type setupApi struct {
	svc      *setup.Service
	validate *validator.Validate
}

func registerSetupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *setup.Service, validate *validator.Validate) {
	api := setupApi{svc: svc, validate: validate}

	sg := g.Group("/setup", jwt)
	sg.GET("", api.retrieve)
	sg.DELETE("", api.reset)
	sg.PUT("/exam-config", api.saveExamConfig)
	sg.PUT("/affective-traits", api.saveAffectiveTraits)
	sg.PUT("/psychomotor-skills", api.savePsychomotorSkills)
	sg.PUT("/sign-off", api.saveSignOff)
	sg.POST("/finalize", api.finalize)
}

// Handlers

func (api *setupApi) retrieve(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.Get(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "getting setup session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *setupApi) reset(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Reset(ctx.Request().Context(), schoolID); err != nil {
		return errors.Wrap(err, "resetting setup session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *setupApi) saveExamConfig(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data results.ExamConfig
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExamConfig")
	}
	sess, err := api.svc.SaveExamConfig(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "saving exam config")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *setupApi) saveAffectiveTraits(ctx echo.Context) error {
	return api.saveTraits(ctx, api.svc.SaveAffectiveTraits)
}

func (api *setupApi) savePsychomotorSkills(ctx echo.Context) error {
	return api.saveTraits(ctx, api.svc.SavePsychomotorSkills)
}

func (api *setupApi) saveTraits(
	ctx echo.Context,
	save func(ctx context.Context, schoolID string, tl setup.TraitList) (setup.Session, error),
) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data setup.TraitList
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TraitList")
	}
	sess, err := save(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "saving traits")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *setupApi) saveSignOff(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data setup.SignOff
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignOff")
	}
	sess, err := api.svc.SaveSignOff(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "saving sign-off")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *setupApi) finalize(ctx echo.Context) error {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return err
	}
	var data setup.FinalizeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FinalizeRequest")
	}
	inst, err := api.svc.Finalize(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "finalizing setup session")
	}
	return ctx.JSON(http.StatusCreated, inst)
}
