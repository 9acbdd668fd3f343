package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
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
				fldErrs[vErr.Field()] = vErr.Translate(translator)
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
		case *core.ConflictError:
			code = http.StatusConflict
			message = origErr.Error()
		case *results.UnknownStudentError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{
				"error":            results.ErrUnknownStudent.Error(),
				"row":              origErr.Row,
				"admission_number": origErr.AdmissionNumber,
			}
		case *results.DuplicateStudentError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{
				"error":            results.ErrDuplicateStudent.Error(),
				"row":              origErr.Row,
				"first_row":        origErr.FirstRow,
				"admission_number": origErr.AdmissionNumber,
			}
		default:
			switch origErr {
			case results.ErrNotFound, results.ErrStudentNotFound, instance.ErrNotFound,
				grading.ErrNotFound, setup.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case grading.ErrNoGradingScale, results.ErrMalformedFile:
				code = http.StatusUnprocessableEntity
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				fields := core.LogFields{"method": ctx.Request().Method, "path": ctx.Path()}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					fields["school_id"] = claims.SchoolID
				}
				logger.Error(msg, errors.Wrap(err, msg), fields)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
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
