package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/notas/apps/api/echo"
	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/tests"
)

func createGroup(t *testing.T, srv http.Handler) echoapi.NewGroupResponse {
	t.Helper()

	var resp echoapi.NewGroupResponse
	code := do(t, srv, http.MethodPost, "/v1/groups", grading.NewGroup{Course: "Álgebra", Semester: "2030-1", Number: 1}, &resp)
	require.Equal(t, http.StatusCreated, code)
	return resp
}

func rubricNamed(t *testing.T, rubrics []grading.Rubric, name string) grading.Rubric {
	t.Helper()

	for _, rub := range rubrics {
		if rub.Name == name {
			return rub
		}
	}
	t.Fatalf("rubric %q not found", name)
	return grading.Rubric{}
}

func TestServer_home(t *testing.T) {
	srv, _ := setup(t)
	req, rec := newRequest(t, http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Notas API!", rec.Body.String())
}

func Test_gradingApi_groups(t *testing.T) {
	srv, _ := setup(t)
	created := createGroup(t, srv)
	assert.Equal(t, "Álgebra", created.Group.Course)
	assert.Len(t, created.Rubrics, len(grading.DefaultRubricNames))
	for _, rub := range created.Rubrics {
		assert.Zero(t, rub.Weight)
	}

	tests := []httpTest{
		{name: "duplicate", method: http.MethodPost, path: "/v1/groups", body: grading.NewGroup{Course: "álgebra", Semester: "2030-1", Number: 1}, wantCode: http.StatusBadRequest},
		{name: "invalid", method: http.MethodPost, path: "/v1/groups", body: grading.NewGroup{Course: "Álgebra", Semester: "2030-1"}, wantCode: http.StatusBadRequest},
		{name: "retrieve", method: http.MethodGet, path: "/v1/groups/" + created.Group.ID, wantCode: http.StatusOK},
		{name: "retrieve (trailing slash)", method: http.MethodGet, path: "/v1/groups/" + created.Group.ID + "/", wantCode: http.StatusOK},
		{name: "unknown", method: http.MethodGet, path: "/v1/groups/nope", wantCode: http.StatusNotFound},
		{name: "list rubrics", method: http.MethodGet, path: "/v1/groups/" + created.Group.ID + "/rubrics", wantCode: http.StatusOK},
		{name: "list rubrics (unknown group)", method: http.MethodGet, path: "/v1/groups/nope/rubrics", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, do(t, srv, tt.method, tt.path, tt.body, nil))
		})
	}

	t.Run("field errors", func(t *testing.T) {
		var fields map[string]string
		code := do(t, srv, http.MethodPost, "/v1/groups", grading.NewGroup{Semester: "2030-1", Number: 1}, &fields)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, fields, "course")
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/v1/groups/"+created.Group.ID, nil, nil))

		var herr httpErr
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/v1/groups/"+created.Group.ID, nil, &herr))
		assert.Equal(t, grading.ErrGroupNotFound.Error(), herr.Error)
	})
}

func Test_gradingApi_rubrics(t *testing.T) {
	srv, _ := setup(t)
	created := createGroup(t, srv)
	exams := rubricNamed(t, created.Rubrics, grading.RubricExams)

	var rub grading.Rubric
	code := do(t, srv, http.MethodPut, "/v1/rubrics/"+exams.ID, grading.UpdateRubric{Name: exams.Name, Weight: 60}, &rub)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 60, rub.Weight)

	t.Run("budget exceeded", func(t *testing.T) {
		var body struct {
			Error     string            `json:"error"`
			Parent    grading.ParentRef `json:"parent"`
			Current   int               `json:"current"`
			Attempted int               `json:"attempted"`
			Budget    int               `json:"budget"`
		}
		path := "/v1/groups/" + created.Group.ID + "/rubrics"
		code := do(t, srv, http.MethodPost, path, grading.NewRubric{Name: "Laboratorios", Weight: 50}, &body)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, grading.GroupParent(created.Group.ID), body.Parent)
		assert.Equal(t, 60, body.Current)
		assert.Equal(t, 50, body.Attempted)
		assert.Equal(t, grading.CourseBudget, body.Budget)
		assert.NotEmpty(t, body.Error)
	})

	t.Run("create & delete", func(t *testing.T) {
		var labs grading.Rubric
		path := "/v1/groups/" + created.Group.ID + "/rubrics"
		code := do(t, srv, http.MethodPost, path, grading.NewRubric{Name: "Laboratorios", Weight: 40}, &labs)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, created.Group.ID, labs.GroupID)

		assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/v1/rubrics/"+labs.ID, nil, nil))
	})

	t.Run("protected", func(t *testing.T) {
		var body struct {
			Error    string `json:"error"`
			RubricID string `json:"rubric_id"`
		}
		code := do(t, srv, http.MethodDelete, "/v1/rubrics/"+exams.ID, nil, &body)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, exams.ID, body.RubricID)
	})
}

func Test_gradingApi_grades(t *testing.T) {
	srv, env := setup(t)
	created := createGroup(t, srv)
	env.Roster.Enroll(created.Group.ID, grading.Student{Carnet: "S001", Name: "Sofía"})
	exams := testutil.SetRubricWeight(t, env.Svc, rubricNamed(t, created.Rubrics, grading.RubricExams), 60)

	var ev grading.Evaluation
	code := do(t, srv, http.MethodPost, "/v1/rubrics/"+exams.ID+"/evaluations", grading.NewEvaluation{
		Name:                "Parcial",
		DueDateTime:         testutil.Due,
		Weight:              30,
		RequiresDeliverable: true,
	}, &ev)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, exams.ID, ev.RubricID)

	gradesPath := "/v1/evaluations/" + ev.ID + "/grades"
	student := grading.Individual("S001")

	t.Run("out of range", func(t *testing.T) {
		var body struct {
			Error  string  `json:"error"`
			Points float64 `json:"points"`
			Max    float64 `json:"max"`
		}
		code := do(t, srv, http.MethodPut, gradesPath, echoapi.SetGradeRequest{Subject: student, Points: 3001}, &body)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, 30.01, body.Points)
		assert.Equal(t, 30.0, body.Max)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		req := echoapi.SetGradeRequest{Subject: grading.WorkGroupSubject("wg"), Points: 100}
		assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPut, gradesPath, req, nil))
	})

	t.Run("set & publish", func(t *testing.T) {
		var rec grading.GradeRecord
		code := do(t, srv, http.MethodPut, gradesPath, echoapi.SetGradeRequest{Subject: student, Points: 2400}, &rec)
		require.Equal(t, http.StatusOK, code)
		assert.False(t, rec.Published)

		code = do(t, srv, http.MethodPost, gradesPath+"/publish", echoapi.PublishRequest{Subject: student}, &rec)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, rec.Published)

		var resp echoapi.PublishAllResponse
		code = do(t, srv, http.MethodPost, gradesPath+"/publish-all", nil, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Zero(t, resp.Published)

		var records []grading.GradeRecord
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, gradesPath, nil, &records))
		assert.Len(t, records, 1)
	})

	t.Run("publish ungraded", func(t *testing.T) {
		req := echoapi.PublishRequest{Subject: grading.Individual("S404")}
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, gradesPath+"/publish", req, nil))
	})

	t.Run("consolidate", func(t *testing.T) {
		var cons grading.Consolidation
		path := "/v1/groups/" + created.Group.ID + "/students/S001/grade"
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, path, nil, &cons))
		assert.Equal(t, 48.0, cons.TotalGrade) // 24/30 * 60
		assert.Equal(t, "Sofía", cons.Student.Name)

		path = "/v1/groups/" + created.Group.ID + "/students/S404/grade"
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, path, nil, nil))
	})

	t.Run("report", func(t *testing.T) {
		var results []grading.Consolidation
		path := "/v1/groups/" + created.Group.ID + "/report"
		code := do(t, srv, http.MethodPost, path, echoapi.ReportRequest{Carnets: []string{"S001"}}, &results)
		require.Equal(t, http.StatusOK, code)
		if assert.Len(t, results, 1) {
			assert.Equal(t, 48.0, results[0].TotalGrade)
		}
	})

	t.Run("batch", func(t *testing.T) {
		var report struct {
			Succeeded int `json:"succeeded"`
			Failed    []struct {
				Row   int    `json:"row"`
				Error string `json:"error"`
			} `json:"failed"`
		}
		rows := []grading.NewGrade{
			{EvaluationID: ev.ID, Subject: grading.Individual("S002"), Points: 1000},
			{EvaluationID: ev.ID, Subject: grading.Individual("S003"), Points: 9000},
		}
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/v1/batch/grades", rows, &report))
		assert.Equal(t, 1, report.Succeeded)
		if assert.Len(t, report.Failed, 1) {
			assert.Equal(t, 2, report.Failed[0].Row)
		}
	})

	t.Run("unknown evaluation", func(t *testing.T) {
		var herr httpErr
		assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/v1/evaluations/nope/grades", nil, &herr))
		assert.Equal(t, grading.ErrEvaluationNotFound.Error(), herr.Error)
	})
}

func Test_gradingApi_workGroups(t *testing.T) {
	srv, env := setup(t)
	created := createGroup(t, srv)
	projects := testutil.SetRubricWeight(t, env.Svc, rubricNamed(t, created.Rubrics, grading.RubricProjects), 40)
	ev := testutil.CreateEvaluation(t, env.Svc, projects.ID, "Proyecto", 40, 2)

	var wg grading.WorkGroup
	code := do(t, srv, http.MethodPost, "/v1/evaluations/"+ev.ID+"/workgroups", grading.NewWorkGroup{Name: "Equipo", Members: []string{"S001"}}, &wg)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, ev.ID, wg.EvaluationID)

	membersPath := "/v1/workgroups/" + wg.ID + "/members"
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, membersPath, echoapi.JoinRequest{Carnet: "S002"}, &wg))
	assert.Equal(t, []string{"S001", "S002"}, wg.Members)

	var full struct {
		Error       string `json:"error"`
		WorkGroupID string `json:"work_group_id"`
		GroupSize   int    `json:"group_size"`
	}
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, membersPath, echoapi.JoinRequest{Carnet: "S003"}, &full))
	assert.Equal(t, 2, full.GroupSize)

	t.Run("submit", func(t *testing.T) {
		var sub grading.Submission
		path := "/v1/evaluations/" + ev.ID + "/submissions"
		code := do(t, srv, http.MethodPost, path, grading.NewSubmission{ActingCarnet: "S002", DeliverableRef: "repo"}, &sub)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, wg.Subject(), sub.Subject)

		code = do(t, srv, http.MethodPost, path, grading.NewSubmission{ActingCarnet: "S009"}, nil)
		assert.Equal(t, http.StatusConflict, code)
	})

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, membersPath+"/S002", nil, &wg))
	assert.Equal(t, []string{"S001"}, wg.Members)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodDelete, membersPath+"/S002", nil, nil))

	var wgs []grading.WorkGroup
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/v1/evaluations/"+ev.ID+"/workgroups", nil, &wgs))
	assert.Len(t, wgs, 1)
}
