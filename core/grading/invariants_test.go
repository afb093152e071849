package grading_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/tests"
)

// checkBudgets asserts Σ rubric weights ≤ 100 per group and Σ evaluation weights ≤ rubric weight.
func checkBudgets(t *testing.T, repo grading.Repository, groupID string) {
	t.Helper()
	ctx := context.Background()

	rubrics, err := repo.QueryRubricsByGroup(ctx, groupID)
	require.NoError(t, err)

	var groupSum int
	for _, rub := range rubrics {
		groupSum += rub.Weight
		evals, err := repo.QueryEvaluationsByRubric(ctx, rub.ID)
		require.NoError(t, err)
		var rubricSum int
		for _, ev := range evals {
			rubricSum += ev.Weight
		}
		require.LessOrEqualf(t, rubricSum, rub.Weight, "rubric %s evaluations", rub.Name)
	}
	require.LessOrEqual(t, groupSum, grading.CourseBudget)
}

func TestBudgets_RandomOperations(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	grp, _ := testutil.CreateGroup(t, env.Svc, "Propiedades", 1)
	rnd := rand.New(rand.NewSource(20301))

	pickRubric := func() (grading.Rubric, bool) {
		rubrics, _ := env.Svc.ListRubrics(ctx, grp.ID)
		if len(rubrics) == 0 {
			return grading.Rubric{}, false
		}
		return rubrics[rnd.Intn(len(rubrics))], true
	}
	pickEvaluation := func() (grading.Evaluation, bool) {
		rub, ok := pickRubric()
		if !ok {
			return grading.Evaluation{}, false
		}
		evals, _ := env.Svc.ListEvaluations(ctx, rub.ID)
		if len(evals) == 0 {
			return grading.Evaluation{}, false
		}
		return evals[rnd.Intn(len(evals))], true
	}

	var accepted, rejected int
	for i := 0; i < 500; i++ {
		var err error
		switch op := rnd.Intn(6); op {
		case 0:
			_, err = env.Svc.CreateRubric(ctx, grading.NewRubric{
				GroupID: grp.ID,
				Name:    fmt.Sprintf("Rubro %d", i),
				Weight:  rnd.Intn(50),
			})
		case 1:
			if rub, ok := pickRubric(); ok {
				_, err = env.Svc.UpdateRubric(ctx, rub.ID, grading.UpdateRubric{Name: rub.Name, Weight: rnd.Intn(70)})
			}
		case 2:
			if rub, ok := pickRubric(); ok && !rub.IsProtected() {
				err = env.Svc.DeleteRubric(ctx, rub.ID)
			}
		case 3:
			if rub, ok := pickRubric(); ok {
				_, err = env.Svc.CreateEvaluation(ctx, grading.NewEvaluation{
					RubricID:            rub.ID,
					Name:                fmt.Sprintf("Evaluación %d", i),
					DueDateTime:         testutil.Due,
					Weight:              rnd.Intn(30),
					RequiresDeliverable: true,
				})
			}
		case 4:
			if ev, ok := pickEvaluation(); ok {
				_, err = env.Svc.UpdateEvaluation(ctx, ev.ID, grading.UpdateEvaluation{
					Name:                ev.Name,
					DueDateTime:         ev.DueDateTime,
					Weight:              rnd.Intn(40),
					RequiresDeliverable: true,
				})
			}
		case 5:
			if ev, ok := pickEvaluation(); ok {
				err = env.Svc.DeleteEvaluation(ctx, ev.ID)
			}
		}
		if err != nil {
			rejected++
		} else {
			accepted++
		}
		checkBudgets(t, env.Repo, grp.ID)
	}
	assert.NotZero(t, accepted)
	assert.NotZero(t, rejected)
}

func TestBudgets_ConcurrentWrites(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	grp, defaults := testutil.CreateGroup(t, env.Svc, "Carreras", 1)

	run := func(n int, fn func(i int) error) (succeeded int) {
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if fn(i) == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		return succeeded
	}

	t.Run("rubrics", func(t *testing.T) {
		ok := run(20, func(i int) error {
			_, err := env.Svc.CreateRubric(ctx, grading.NewRubric{GroupID: grp.ID, Name: fmt.Sprintf("R%d", i), Weight: 10})
			return err
		})
		assert.Equal(t, 10, ok)
		checkBudgets(t, env.Repo, grp.ID)
	})

	t.Run("evaluations", func(t *testing.T) {
		// free 30% of the group for Quices
		rubrics, err := env.Svc.ListRubrics(ctx, grp.ID)
		require.NoError(t, err)
		var freed int
		for _, rub := range rubrics {
			if !rub.IsProtected() && freed < 3 {
				require.NoError(t, env.Svc.DeleteRubric(ctx, rub.ID))
				freed++
			}
		}
		quizzes := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricQuizzes], 30)

		ok := run(12, func(i int) error {
			_, err := env.Svc.CreateEvaluation(ctx, grading.NewEvaluation{
				RubricID:    quizzes.ID,
				Name:        fmt.Sprintf("Q%d", i),
				DueDateTime: testutil.Due,
				Weight:      5,
			})
			return err
		})
		assert.Equal(t, 6, ok)
		checkBudgets(t, env.Repo, grp.ID)
	})

	t.Run("work group members", func(t *testing.T) {
		projects := defaults[grading.RubricProjects]
		ev := testutil.CreateEvaluation(t, env.Svc, projects.ID, "Proyecto", 0, 3)
		wg, err := env.Svc.CreateWorkGroup(ctx, grading.NewWorkGroup{EvaluationID: ev.ID, Name: "Equipo"})
		require.NoError(t, err)

		ok := run(8, func(i int) error {
			_, err := env.Svc.JoinWorkGroup(ctx, wg.ID, fmt.Sprintf("S%03d", i))
			return err
		})
		assert.Equal(t, 3, ok)

		wg, err = env.Svc.GetWorkGroup(ctx, wg.ID)
		require.NoError(t, err)
		assert.Len(t, wg.Members, 3)
	})

	t.Run("submissions", func(t *testing.T) {
		ev := testutil.CreateEvaluation(t, env.Svc, defaults[grading.RubricPresentations].ID, "Exposición", 0, 0)
		ok := run(10, func(int) error {
			_, err := env.Svc.Submit(ctx, grading.NewSubmission{EvaluationID: ev.ID, ActingCarnet: "S001", DeliverableRef: "slides"})
			return err
		})
		assert.Equal(t, 10, ok)

		subs, err := env.Svc.ListSubmissions(ctx, ev.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})
}
