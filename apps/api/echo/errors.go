package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
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
		case *grading.BudgetExceededError:
			code = http.StatusConflict
			message = echo.Map{
				"error":     origErr.Error(),
				"parent":    origErr.Parent,
				"current":   origErr.Current,
				"attempted": origErr.Attempted,
				"budget":    origErr.Budget,
			}
		case *grading.ProtectedEntityError:
			code = http.StatusConflict
			message = echo.Map{"error": origErr.Error(), "rubric_id": origErr.RubricID}
		case *grading.GroupFullError:
			code = http.StatusConflict
			message = echo.Map{"error": origErr.Error(), "work_group_id": origErr.WorkGroupID, "group_size": origErr.GroupSize}
		case *grading.OutOfRangeError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{"error": origErr.Error(), "points": origErr.Points, "max": origErr.Max}
		default:
			code, message = sentinelStatus(origErr)
			if code != http.StatusInternalServerError {
				break
			}

			// any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			if ctx.Echo().Debug {
				message = err.Error()
			}
			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Path(),
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
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

// sentinelStatus maps the grading sentinel errors to their HTTP status.
func sentinelStatus(err error) (int, interface{}) {
	switch {
	case grading.IsNotFound(err), err == grading.ErrUnknownStudent:
		return http.StatusNotFound, err.Error()
	}
	switch err {
	case grading.ErrSubjectNotInGroup, grading.ErrAlreadyInWorkGroup, grading.ErrNotGroupEvaluation,
		grading.ErrSubjectKindMismatch, grading.ErrGroupExists, grading.ErrRubricNameExists:
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, nil
}
