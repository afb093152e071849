package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/notas/core/grading"
)

const ctxEvaluationKey = "evaluation"

var errEvNotFoundInCtx = errors.New("evaluation not found in echo.Context")

// evaluationMiddleware loads the `:id` Evaluation into the context.
func evaluationMiddleware(svc *grading.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ev, err := svc.GetEvaluation(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set(ctxEvaluationKey, ev)
			return next(ctx)
		}
	}
}

func getContextEvaluation(ctx echo.Context) (grading.Evaluation, error) {
	ev, ok := ctx.Get(ctxEvaluationKey).(grading.Evaluation)
	if !ok {
		return grading.Evaluation{}, errEvNotFoundInCtx
	}
	return ev, nil
}
