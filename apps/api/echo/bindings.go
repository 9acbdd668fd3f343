package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

// ScopeParams identify a class, session and term of the token's school.
// They come from the query string, a form, or a JSON body.
type ScopeParams struct {
	ClassID   string `json:"class_id" query:"class_id" form:"class_id"`
	SessionID string `json:"session_id" query:"session_id" form:"session_id"`
	TermID    string `json:"term_id" query:"term_id" form:"term_id"`
}

func (p ScopeParams) scope(schoolID string) results.Scope {
	return results.Scope{
		SchoolID:  schoolID,
		ClassID:   core.CleanString(p.ClassID),
		SessionID: core.CleanString(p.SessionID),
		TermID:    core.CleanString(p.TermID),
	}
}

// bindScope builds the request scope; the school always comes from the token.
func bindScope(ctx echo.Context, validate *validator.Validate) (results.Scope, error) {
	schoolID, err := contextSchoolID(ctx)
	if err != nil {
		return results.Scope{}, err
	}
	var params ScopeParams
	if err = ctx.Bind(&params); err != nil {
		return results.Scope{}, errors.Wrap(err, "binding to ScopeParams")
	}
	scope := params.scope(schoolID)
	if err = validate.Struct(scope); err != nil {
		return results.Scope{}, err
	}
	return scope, nil
}
