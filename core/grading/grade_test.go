package grading_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/tests"
)

func TestService_SetGrade(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	_, defaults := testutil.CreateGroup(t, env.Svc, "Lógica", 1)
	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 60)
	ev := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial", 30, 0)
	groupEv := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Grupal", 20, 3)

	wg, err := env.Svc.CreateWorkGroup(ctx, grading.NewWorkGroup{EvaluationID: groupEv.ID, Name: "Equipo", Members: []string{"A001"}})
	require.NoError(t, err)

	student := grading.Individual("A001")
	tests := []struct {
		name    string
		evID    string
		subject grading.Subject
		points  grading.Points
		wantErr error
	}{
		{name: "zero", evID: ev.ID, subject: student, points: 0},
		{name: "max", evID: ev.ID, subject: student, points: grading.PointsFromWeight(30)},
		{name: "decimals", evID: ev.ID, subject: student, points: 2475},
		{
			name:    "one hundredth above max",
			evID:    ev.ID,
			subject: student,
			points:  grading.PointsFromWeight(30) + 1,
			wantErr: &grading.OutOfRangeError{EvaluationID: ev.ID, Points: 3001, Max: 3000},
		},
		{
			name:    "negative",
			evID:    ev.ID,
			subject: student,
			points:  -1,
			wantErr: &grading.OutOfRangeError{EvaluationID: ev.ID, Points: -1, Max: 3000},
		},
		{name: "work group", evID: groupEv.ID, subject: wg.Subject(), points: 1500},
		{name: "work group subject on an individual evaluation", evID: ev.ID, subject: wg.Subject(), wantErr: grading.ErrSubjectKindMismatch},
		{name: "individual subject on a group evaluation", evID: groupEv.ID, subject: student, wantErr: grading.ErrSubjectKindMismatch},
		{name: "unknown work group", evID: groupEv.ID, subject: grading.WorkGroupSubject("nope"), wantErr: grading.ErrWorkGroupNotFound},
		{name: "unknown evaluation", evID: "nope", subject: student, wantErr: grading.ErrEvaluationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := env.Svc.SetGrade(ctx, tt.evID, tt.subject, tt.points, "")
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.points, rec.Points)
				assert.False(t, rec.Published)
			}
		})
	}

	t.Run("invalid subject", func(t *testing.T) {
		_, err := env.Svc.SetGrade(ctx, ev.ID, grading.Subject{Kind: "team", ID: "x"}, 0, "")
		assert.Error(t, err)
	})

	t.Run("regrade unpublishes", func(t *testing.T) {
		rec := testutil.Grade(t, env.Svc, ev.ID, student, "20")
		require.True(t, rec.Published)

		rec, err := env.Svc.SetGrade(ctx, ev.ID, student, 2100, "  revisado  ")
		require.NoError(t, err)
		assert.False(t, rec.Published)
		assert.True(t, rec.PublishedAt.IsZero())
		assert.Equal(t, "revisado", rec.Observations)

		got, err := env.Svc.GetGrade(ctx, ev.ID, student)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})
}

func TestService_Publish(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	grp, defaults := testutil.CreateGroup(t, env.Svc, "Ética", 1)
	exams := testutil.SetRubricWeight(t, env.Svc, defaults[grading.RubricExams], 60)
	ev := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Parcial", 30, 0)
	groupEv := testutil.CreateEvaluation(t, env.Svc, exams.ID, "Grupal", 20, 2)

	env.Roster.Enroll(grp.ID,
		grading.Student{Carnet: "A001", Name: "Ana", Email: "ana@test.test"},
		grading.Student{Carnet: "A002", Name: "Beto", Email: "beto@test.test"},
		grading.Student{Carnet: "A003", Name: "Ceci"}, // no email
	)

	student := grading.Individual("A001")

	t.Run("not graded", func(t *testing.T) {
		_, err := env.Svc.Publish(ctx, ev.ID, student)
		assert.Equal(t, grading.ErrGradeNotFound, err)
	})

	t.Run("publish notifies", func(t *testing.T) {
		_, err := env.Svc.SetGrade(ctx, ev.ID, student, 2550, "bien")
		require.NoError(t, err)

		rec, err := env.Svc.Publish(ctx, ev.ID, student)
		require.NoError(t, err)
		assert.True(t, rec.Published)
		assert.False(t, rec.PublishedAt.IsZero())

		sent := env.Mail.SentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, "ana@test.test", sent[0].To[0].Address)
			assert.Contains(t, sent[0].TextContent, "25.50 / 30")
			assert.Contains(t, sent[0].TextContent, "bien")
			assert.Equal(t, []string{grading.GradePublishedCategory}, sent[0].Categories)
			assert.Equal(t, ev.ID, sent[0].Args["evaluation_id"])
			assert.Equal(t, student.Key(), sent[0].Args["subject"])
		}

		// publishing twice is a no-op
		again, err := env.Svc.Publish(ctx, ev.ID, student)
		require.NoError(t, err)
		assert.Equal(t, rec.PublishedAt, again.PublishedAt)
		assert.Len(t, env.Mail.SentMessages(), 1)
	})

	t.Run("publish all", func(t *testing.T) {
		wg, err := env.Svc.CreateWorkGroup(ctx, grading.NewWorkGroup{
			EvaluationID: groupEv.ID,
			Name:         "Equipo",
			Members:      []string{"A002", "A003"},
		})
		require.NoError(t, err)
		_, err = env.Svc.SetGrade(ctx, groupEv.ID, wg.Subject(), 1800, "")
		require.NoError(t, err)

		n, err := env.Svc.PublishAll(ctx, groupEv.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// only A002 has an email
		sent := env.Mail.SentMessages()
		if assert.Len(t, sent, 2) {
			assert.Equal(t, "beto@test.test", sent[1].To[0].Address)
			assert.True(t, strings.HasPrefix(sent[1].TextContent, "Hello Beto,"))
		}

		n, err = env.Svc.PublishAll(ctx, groupEv.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		grades, err := env.Svc.ListGrades(ctx, groupEv.ID)
		require.NoError(t, err)
		if assert.Len(t, grades, 1) {
			assert.True(t, grades[0].Published)
		}
	})

	t.Run("unknown evaluation", func(t *testing.T) {
		_, err := env.Svc.PublishAll(ctx, "nope")
		assert.Equal(t, grading.ErrEvaluationNotFound, err)
	})

	t.Run("invalid subject", func(t *testing.T) {
		_, err := env.Svc.Publish(ctx, ev.ID, grading.Subject{})
		assert.IsType(t, &core.ValidationError{}, err)
	})
}
