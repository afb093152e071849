package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/notas/core/grading"
)

type gradingApi struct {
	svc *grading.Service
}

func registerGradingAPI(g *echo.Group, svc *grading.Service) {
	api := gradingApi{svc: svc}

	gg := g.Group("/groups")
	gg.GET("", api.listGroups)
	gg.POST("", api.createGroup)
	gg.GET("/:id", api.retrieveGroup)
	gg.DELETE("/:id", api.destroyGroup)
	gg.GET("/:id/rubrics", api.listRubrics)
	gg.POST("/:id/rubrics", api.createRubric)
	gg.GET("/:id/students/:carnet/grade", api.consolidate)
	gg.POST("/:id/report", api.report)

	rg := g.Group("/rubrics")
	rg.GET("/:id", api.retrieveRubric)
	rg.PUT("/:id", api.updateRubric)
	rg.DELETE("/:id", api.destroyRubric)
	rg.GET("/:id/evaluations", api.listEvaluations)
	rg.POST("/:id/evaluations", api.createEvaluation)

	eg := g.Group("/evaluations")
	eg.PUT("/:id", api.updateEvaluation)
	eg.DELETE("/:id", api.destroyEvaluation)

	// evaluation detail endpoints
	dg := eg.Group("/:id", evaluationMiddleware(svc))
	dg.GET("", api.retrieveEvaluation)
	dg.GET("/workgroups", api.listWorkGroups)
	dg.POST("/workgroups", api.createWorkGroup)
	dg.GET("/submissions", api.listSubmissions)
	dg.POST("/submissions", api.submit)
	dg.GET("/grades", api.listGrades)
	dg.PUT("/grades", api.setGrade)
	dg.POST("/grades/publish", api.publish)
	dg.POST("/grades/publish-all", api.publishAll)

	wg := g.Group("/workgroups")
	wg.GET("/:id", api.retrieveWorkGroup)
	wg.POST("/:id/members", api.join)
	wg.DELETE("/:id/members/:carnet", api.leave)

	bg := g.Group("/batch")
	bg.POST("/evaluations", api.batchCreateEvaluations)
	bg.POST("/grades", api.batchSetGrades)
}

// Groups

func (api *gradingApi) listGroups(ctx echo.Context) error {
	groups, err := api.svc.ListGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *gradingApi) createGroup(ctx echo.Context) error {
	var data grading.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}

	grp, rubrics, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, NewGroupResponse{Group: grp, Rubrics: rubrics})
}

func (api *gradingApi) retrieveGroup(ctx echo.Context) error {
	grp, err := api.svc.GetGroup(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *gradingApi) destroyGroup(ctx echo.Context) error {
	if err := api.svc.DeleteGroup(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradingApi) consolidate(ctx echo.Context) error {
	cons, err := api.svc.Consolidate(ctx.Request().Context(), ctx.Param("carnet"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "consolidating grade")
	}
	return ctx.JSON(http.StatusOK, cons)
}

func (api *gradingApi) report(ctx echo.Context) error {
	var data ReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportRequest")
	}

	results, err := api.svc.ConsolidateAll(ctx.Request().Context(), ctx.Param("id"), data.Carnets)
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, results)
}

// Rubrics

func (api *gradingApi) listRubrics(ctx echo.Context) error {
	rubrics, err := api.svc.ListRubrics(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing rubrics")
	}
	return ctx.JSON(http.StatusOK, rubrics)
}

func (api *gradingApi) createRubric(ctx echo.Context) error {
	var data grading.NewRubric
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRubric")
	}
	data.GroupID = ctx.Param("id")

	rub, err := api.svc.CreateRubric(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating rubric")
	}
	return ctx.JSON(http.StatusCreated, rub)
}

func (api *gradingApi) retrieveRubric(ctx echo.Context) error {
	rub, err := api.svc.GetRubric(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting rubric")
	}
	return ctx.JSON(http.StatusOK, rub)
}

func (api *gradingApi) updateRubric(ctx echo.Context) error {
	var data grading.UpdateRubric
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRubric")
	}

	rub, err := api.svc.UpdateRubric(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating rubric")
	}
	return ctx.JSON(http.StatusOK, rub)
}

func (api *gradingApi) destroyRubric(ctx echo.Context) error {
	if err := api.svc.DeleteRubric(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting rubric")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Evaluations

func (api *gradingApi) listEvaluations(ctx echo.Context) error {
	evals, err := api.svc.ListEvaluations(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing evaluations")
	}
	return ctx.JSON(http.StatusOK, evals)
}

func (api *gradingApi) createEvaluation(ctx echo.Context) error {
	var data grading.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	data.RubricID = ctx.Param("id")

	ev, err := api.svc.CreateEvaluation(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating evaluation")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *gradingApi) retrieveEvaluation(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *gradingApi) updateEvaluation(ctx echo.Context) error {
	var data grading.UpdateEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvaluation")
	}

	ev, err := api.svc.UpdateEvaluation(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating evaluation")
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *gradingApi) destroyEvaluation(ctx echo.Context) error {
	if err := api.svc.DeleteEvaluation(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting evaluation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Work groups

func (api *gradingApi) listWorkGroups(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	wgs, err := api.svc.ListWorkGroups(ctx.Request().Context(), ev.ID)
	if err != nil {
		return errors.Wrap(err, "listing work groups")
	}
	return ctx.JSON(http.StatusOK, wgs)
}

func (api *gradingApi) createWorkGroup(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data grading.NewWorkGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWorkGroup")
	}
	data.EvaluationID = ev.ID

	wg, err := api.svc.CreateWorkGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating work group")
	}
	return ctx.JSON(http.StatusCreated, wg)
}

func (api *gradingApi) retrieveWorkGroup(ctx echo.Context) error {
	wg, err := api.svc.GetWorkGroup(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting work group")
	}
	return ctx.JSON(http.StatusOK, wg)
}

func (api *gradingApi) join(ctx echo.Context) error {
	var data JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}

	wg, err := api.svc.JoinWorkGroup(ctx.Request().Context(), ctx.Param("id"), data.Carnet)
	if err != nil {
		return errors.Wrap(err, "joining work group")
	}
	return ctx.JSON(http.StatusOK, wg)
}

func (api *gradingApi) leave(ctx echo.Context) error {
	wg, err := api.svc.LeaveWorkGroup(ctx.Request().Context(), ctx.Param("id"), ctx.Param("carnet"))
	if err != nil {
		return errors.Wrap(err, "leaving work group")
	}
	return ctx.JSON(http.StatusOK, wg)
}

// Submissions

func (api *gradingApi) listSubmissions(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), ev.ID)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *gradingApi) submit(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data grading.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	data.EvaluationID = ev.ID

	sub, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// Grades

func (api *gradingApi) listGrades(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	records, err := api.svc.ListGrades(ctx.Request().Context(), ev.ID)
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *gradingApi) setGrade(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data SetGradeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetGradeRequest")
	}

	rec, err := api.svc.SetGrade(ctx.Request().Context(), ev.ID, data.Subject, data.Points, data.Observations)
	if err != nil {
		return errors.Wrap(err, "setting grade")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradingApi) publish(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data PublishRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}

	rec, err := api.svc.Publish(ctx.Request().Context(), ev.ID, data.Subject)
	if err != nil {
		return errors.Wrap(err, "publishing grade")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradingApi) publishAll(ctx echo.Context) error {
	ev, err := getContextEvaluation(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	n, err := api.svc.PublishAll(ctx.Request().Context(), ev.ID)
	if err != nil {
		return errors.Wrap(err, "publishing grades")
	}
	return ctx.JSON(http.StatusOK, PublishAllResponse{Published: n})
}

// Batch imports; rows are 1-indexed in the report.

func (api *gradingApi) batchCreateEvaluations(ctx echo.Context) error {
	var rows []grading.NewEvaluation
	if err := new(echo.DefaultBinder).BindBody(ctx, &rows); err != nil {
		return errors.Wrap(err, "binding to []NewEvaluation")
	}
	return ctx.JSON(http.StatusOK, api.svc.BatchCreateEvaluations(ctx.Request().Context(), rows))
}

func (api *gradingApi) batchSetGrades(ctx echo.Context) error {
	var rows []grading.NewGrade
	if err := new(echo.DefaultBinder).BindBody(ctx, &rows); err != nil {
		return errors.Wrap(err, "binding to []NewGrade")
	}
	return ctx.JSON(http.StatusOK, api.svc.BatchSetGrades(ctx.Request().Context(), rows))
}
