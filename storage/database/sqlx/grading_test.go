package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/storage/database/sqlx"
	"github.com/trezcool/notas/tests"
)

func newEnv(t *testing.T) *testutil.Env {
	t.Helper()
	return testutil.NewEnvWithRepo(t, sqlxrepos.NewGradingRepository(testutil.NewSQLiteDB(t)))
}

func TestGradingRepository_RunInTx(t *testing.T) {
	repo := sqlxrepos.NewGradingRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	errBoom := errors.New("boom")

	var created grading.Group
	err := repo.RunInTx(ctx, func(tx grading.Tx) error {
		var err error
		created, err = tx.CreateGroup(ctx, grading.Group{Course: "Física", Semester: "2030-1", Number: 1, CreatedAt: time.Now()})
		require.NoError(t, err)
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	_, err = repo.GetGroup(ctx, created.ID)
	assert.Equal(t, grading.ErrGroupNotFound, err, "rolled back")

	err = repo.RunInTx(ctx, func(tx grading.Tx) error {
		var err error
		created, err = tx.CreateGroup(ctx, grading.Group{Course: "Física", Semester: "2030-1", Number: 1, CreatedAt: time.Now()})
		return err
	})
	require.NoError(t, err)

	grp, err := repo.FindGroup(ctx, "FÍSICA", "2030-1", 1)
	if assert.NoError(t, err) {
		assert.Equal(t, created, grp)
	}
}

func TestGradingRepository_Budgets(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	grp, defaults := testutil.CreateGroup(t, env.Svc, "Física", 1)
	assert.Len(t, defaults, len(grading.DefaultRubricNames))

	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 60)
	testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricQuizzes], 30)

	_, err := env.Svc.CreateRubric(ctx, grading.NewRubric{GroupID: grp.ID, Name: "Laboratorios", Weight: 20})
	assert.Equal(t, &grading.BudgetExceededError{
		Parent:    grading.GroupParent(grp.ID),
		Current:   90,
		Attempted: 20,
		Budget:    grading.CourseBudget,
	}, errors.Cause(err))

	testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial 1", 30, 0)
	_, err = env.Svc.CreateEvaluation(ctx, grading.NewEvaluation{
		RubricID:    exams.ID,
		Name:        "Parcial 2",
		DueDateTime: testutil.Due,
		Weight:      31,
	})
	assert.IsType(t, &grading.BudgetExceededError{}, errors.Cause(err))

	_, err = env.Svc.UpdateRubric(ctx, exams.ID, grading.UpdateRubric{Name: exams.Name, Weight: 20})
	assert.IsType(t, &grading.BudgetExceededError{}, errors.Cause(err))

	rubrics, err := env.Svc.ListRubrics(ctx, grp.ID)
	require.NoError(t, err)
	var sum int
	for _, rub := range rubrics {
		sum += rub.Weight
	}
	assert.Equal(t, 90, sum)
}

func TestGradingRepository_GradingFlow(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	grp, defaults := testutil.CreateGroup(t, env.Svc, "Química", 2)
	env.Roster.Enroll(grp.ID,
		grading.Student{Carnet: "Q001", Name: "Ana", Email: "ana@test.test"},
		grading.Student{Carnet: "Q002", Name: "Beto"},
	)

	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 60)
	projects := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricProjects], 40)
	parcial := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial", 30, 0)
	proyecto := testutil.CreateEvaluation(t, env.Svc, projects.ID, "Proyecto", 40, 2)

	wg, err := env.Svc.CreateWorkGroup(ctx, grading.NewWorkGroup{EvaluationID: proyecto.ID, Name: "Equipo", Members: []string{"Q001"}})
	require.NoError(t, err)
	wg, err = env.Svc.JoinWorkGroup(ctx, wg.ID, "Q002")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q001", "Q002"}, wg.Members)

	_, err = env.Svc.JoinWorkGroup(ctx, wg.ID, "Q003")
	assert.Equal(t, &grading.GroupFullError{WorkGroupID: wg.ID, GroupSize: 2}, err)

	found, err := env.Repo.FindWorkGroupByMember(ctx, proyecto.ID, "Q002")
	if assert.NoError(t, err) {
		assert.Equal(t, wg.ID, found.ID)
	}

	t.Run("submissions", func(t *testing.T) {
		first, err := env.Svc.Submit(ctx, grading.NewSubmission{EvaluationID: proyecto.ID, ActingCarnet: "Q001", DeliverableRef: "v1"})
		require.NoError(t, err)
		assert.Equal(t, wg.Subject(), first.Subject)

		second, err := env.Svc.Submit(ctx, grading.NewSubmission{EvaluationID: proyecto.ID, ActingCarnet: "Q002", DeliverableRef: "v2"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Q002", second.SubmittedBy)

		subs, err := env.Svc.ListSubmissions(ctx, proyecto.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("grades", func(t *testing.T) {
		rec, err := env.Svc.SetGrade(ctx, parcial.ID, grading.Individual("Q001"), 2400, "bien")
		require.NoError(t, err)
		assert.False(t, rec.Published)
		assert.True(t, rec.PublishedAt.IsZero())
		assert.Equal(t, "bien", rec.Observations)

		rec, err = env.Svc.Publish(ctx, parcial.ID, grading.Individual("Q001"))
		require.NoError(t, err)
		assert.True(t, rec.Published)
		assert.False(t, rec.PublishedAt.IsZero())

		_, err = env.Svc.SetGrade(ctx, proyecto.ID, wg.Subject(), 3000, "")
		require.NoError(t, err)
		n, err := env.Svc.PublishAll(ctx, proyecto.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = env.Svc.SetGrade(ctx, parcial.ID, grading.Individual("Q002"), 3001, "")
		assert.IsType(t, &grading.OutOfRangeError{}, errors.Cause(err))
	})

	t.Run("consolidation", func(t *testing.T) {
		// 24/30 * 60 + 30/40 * 40
		cons, err := env.Svc.Consolidate(ctx, "Q001", grp.ID)
		require.NoError(t, err)
		assert.Equal(t, 78.0, cons.TotalGrade)

		// shares the project grade only
		cons, err = env.Svc.Consolidate(ctx, "Q002", grp.ID)
		require.NoError(t, err)
		assert.Equal(t, 30.0, cons.TotalGrade)
	})

	t.Run("cascading deletes", func(t *testing.T) {
		require.NoError(t, env.Svc.DeleteEvaluation(ctx, proyecto.ID))

		_, err := env.Repo.GetWorkGroup(ctx, wg.ID)
		assert.Equal(t, grading.ErrWorkGroupNotFound, err)
		_, err = env.Repo.GetGradeRecord(ctx, proyecto.ID, wg.Subject())
		assert.Equal(t, grading.ErrGradeNotFound, err)

		require.NoError(t, env.Svc.DeleteGroup(ctx, grp.ID))
		_, err = env.Repo.GetEvaluation(ctx, parcial.ID)
		assert.Equal(t, grading.ErrEvaluationNotFound, err)
		_, err = env.Repo.GetRubric(ctx, exams.ID)
		assert.Equal(t, grading.ErrRubricNotFound, err)

		assert.Equal(t, grading.ErrGroupNotFound, env.Svc.DeleteGroup(ctx, grp.ID))
	})
}
