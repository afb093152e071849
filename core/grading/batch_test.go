package grading_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/tests"
)

func TestService_BatchCreateEvaluations(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	_, defaults := testutil.CreateGroup(t, env.Svc, "Importación", 1)
	quizzes := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricQuizzes], 30)

	row := func(name string, weight int) grading.NewEvaluation {
		return grading.NewEvaluation{RubricID: quizzes.ID, Name: name, DueDateTime: testutil.Due, Weight: weight, RequiresDeliverable: true}
	}
	report := env.Svc.BatchCreateEvaluations(ctx, []grading.NewEvaluation{
		row("Quiz 1", 20),
		row("Quiz 2", 15), // 35 > 30
		row("", 5),        // invalid
		row("Quiz 3", 10),
	})

	assert.Equal(t, 2, report.Succeeded)
	if assert.Len(t, report.Failed, 2) {
		assert.Equal(t, 2, report.Failed[0].Row)
		assert.IsType(t, &grading.BudgetExceededError{}, report.Failed[0].Err)
		assert.Equal(t, 3, report.Failed[1].Row)
	}

	evals, err := env.Svc.ListEvaluations(ctx, quizzes.ID)
	require.NoError(t, err)
	assert.Len(t, evals, 2)

	data, err := json.Marshal(report.Failed[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"row": 2, "error": "`+report.Failed[0].Err.Error()+`"}`, string(data))
}

func TestService_BatchSetGrades(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	_, defaults := testutil.CreateGroup(t, env.Svc, "Importación", 1)
	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 50)
	ev := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial", 50, 0)

	report := env.Svc.BatchSetGrades(ctx, []grading.NewGrade{
		{EvaluationID: ev.ID, Subject: grading.Individual("S001"), Points: 4500},
		{EvaluationID: ev.ID, Subject: grading.Individual("S002"), Points: 5001},
		{EvaluationID: "nope", Subject: grading.Individual("S003"), Points: 100},
		{EvaluationID: ev.ID, Subject: grading.Individual("S004"), Points: 5000},
	})
	assert.Equal(t, 2, report.Succeeded)
	if assert.Len(t, report.Failed, 2) {
		assert.Equal(t, &grading.OutOfRangeError{EvaluationID: ev.ID, Points: 5001, Max: 5000}, report.Failed[0].Err)
		assert.Equal(t, grading.ErrEvaluationNotFound, report.Failed[1].Err)
	}

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		report := env.Svc.BatchSetGrades(cctx, []grading.NewGrade{
			{EvaluationID: ev.ID, Subject: grading.Individual("S005"), Points: 100},
		})
		assert.Zero(t, report.Succeeded)
		if assert.Len(t, report.Failed, 1) {
			assert.Equal(t, context.Canceled, report.Failed[0].Err)
		}
	})
}

func TestService_BatchSetGrades_Carnets(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	grp, defaults := testutil.CreateGroup(t, env.Svc, "Importación", 2)
	env.Roster.Enroll(grp.ID, grading.Student{Carnet: "S001", Name: "Sara"})
	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 50)
	ev := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial", 50, 0)

	report := env.Svc.BatchSetGrades(ctx, []grading.NewGrade{
		{EvaluationID: ev.ID, Subject: grading.Individual("  S001 "), Points: 4000},
		{EvaluationID: ev.ID, Subject: grading.Individual("S 002"), Points: 1000},
		{EvaluationID: ev.ID, Subject: grading.Individual("   "), Points: 1000},
	})
	assert.Equal(t, 1, report.Succeeded)
	if assert.Len(t, report.Failed, 2) {
		assert.Equal(t, 2, report.Failed[0].Row)
		assert.IsType(t, validator.ValidationErrors{}, report.Failed[0].Err)
		assert.Equal(t, 3, report.Failed[1].Row)
	}

	rec, err := env.Svc.GetGrade(ctx, ev.ID, grading.Individual("S001"))
	require.NoError(t, err)
	assert.Equal(t, grading.Individual("S001"), rec.Subject)

	rec, err = env.Svc.Publish(ctx, ev.ID, grading.Individual(" S001"))
	require.NoError(t, err)
	assert.True(t, rec.Published)

	_, err = env.Svc.GetGrade(ctx, ev.ID, grading.Individual("S 001"))
	assert.IsType(t, &core.ValidationError{}, err)

	cons, err := env.Svc.Consolidate(ctx, "S001", grp.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cons.TotalGrade)
}
