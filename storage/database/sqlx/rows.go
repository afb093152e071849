package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/notas/core/grading"
)

// Times are stored as unix milliseconds and points as hundredths, so that both engines agree on them.

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toNullMillis(t time.Time) null.Int64 {
	if t.IsZero() {
		return null.Int64{}
	}
	return null.Int64From(t.UnixMilli())
}

func fromNullMillis(ms null.Int64) time.Time {
	if !ms.Valid {
		return time.Time{}
	}
	return fromMillis(ms.Int64)
}

const groupColumns = "id, course, semester, number, created_at"

type groupRow struct {
	ID        string `db:"id"`
	Course    string `db:"course"`
	Semester  string `db:"semester"`
	Number    int    `db:"number"`
	CreatedAt int64  `db:"created_at"`
}

func (r groupRow) toModel() grading.Group {
	return grading.Group{
		ID:        r.ID,
		Course:    r.Course,
		Semester:  r.Semester,
		Number:    r.Number,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

const rubricColumns = "id, group_id, name, weight, created_at, updated_at"

type rubricRow struct {
	ID        string `db:"id"`
	GroupID   string `db:"group_id"`
	Name      string `db:"name"`
	Weight    int    `db:"weight"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r rubricRow) toModel() grading.Rubric {
	return grading.Rubric{
		ID:        r.ID,
		GroupID:   r.GroupID,
		Name:      r.Name,
		Weight:    r.Weight,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

const evaluationColumns = "id, rubric_id, name, due_date_time, weight, is_group_evaluation, group_size, " +
	"requires_deliverable, created_at, updated_at"

type evaluationRow struct {
	ID                  string `db:"id"`
	RubricID            string `db:"rubric_id"`
	Name                string `db:"name"`
	DueDateTime         int64  `db:"due_date_time"`
	Weight              int    `db:"weight"`
	IsGroupEvaluation   bool   `db:"is_group_evaluation"`
	GroupSize           int    `db:"group_size"`
	RequiresDeliverable bool   `db:"requires_deliverable"`
	CreatedAt           int64  `db:"created_at"`
	UpdatedAt           int64  `db:"updated_at"`
}

func (r evaluationRow) toModel() grading.Evaluation {
	return grading.Evaluation{
		ID:                  r.ID,
		RubricID:            r.RubricID,
		Name:                r.Name,
		DueDateTime:         fromMillis(r.DueDateTime),
		Weight:              r.Weight,
		IsGroupEvaluation:   r.IsGroupEvaluation,
		GroupSize:           r.GroupSize,
		RequiresDeliverable: r.RequiresDeliverable,
		CreatedAt:           fromMillis(r.CreatedAt),
		UpdatedAt:           fromMillis(r.UpdatedAt),
	}
}

const workGroupColumns = "id, evaluation_id, name, created_at"

type workGroupRow struct {
	ID           string `db:"id"`
	EvaluationID string `db:"evaluation_id"`
	Name         string `db:"name"`
	CreatedAt    int64  `db:"created_at"`
}

func (r workGroupRow) toModel(members []string) grading.WorkGroup {
	if members == nil {
		members = make([]string, 0)
	}
	return grading.WorkGroup{
		ID:           r.ID,
		EvaluationID: r.EvaluationID,
		Name:         r.Name,
		Members:      members,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

type memberRow struct {
	WorkGroupID string `db:"work_group_id"`
	Carnet      string `db:"carnet"`
}

const submissionColumns = "id, evaluation_id, subject_kind, subject_id, submitted_by, deliverable_ref, submitted_at"

type submissionRow struct {
	ID             string `db:"id"`
	EvaluationID   string `db:"evaluation_id"`
	SubjectKind    string `db:"subject_kind"`
	SubjectID      string `db:"subject_id"`
	SubmittedBy    string `db:"submitted_by"`
	DeliverableRef string `db:"deliverable_ref"`
	SubmittedAt    int64  `db:"submitted_at"`
}

func (r submissionRow) toModel() grading.Submission {
	return grading.Submission{
		ID:             r.ID,
		EvaluationID:   r.EvaluationID,
		Subject:        grading.Subject{Kind: grading.SubjectKind(r.SubjectKind), ID: r.SubjectID},
		SubmittedBy:    r.SubmittedBy,
		DeliverableRef: r.DeliverableRef,
		SubmittedAt:    fromMillis(r.SubmittedAt),
	}
}

const gradeColumns = "id, evaluation_id, subject_kind, subject_id, points, observations, published, " +
	"published_at, updated_at"

type gradeRow struct {
	ID           string      `db:"id"`
	EvaluationID string      `db:"evaluation_id"`
	SubjectKind  string      `db:"subject_kind"`
	SubjectID    string      `db:"subject_id"`
	Points       int64       `db:"points"`
	Observations null.String `db:"observations"`
	Published    bool        `db:"published"`
	PublishedAt  null.Int64  `db:"published_at"`
	UpdatedAt    int64       `db:"updated_at"`
}

func (r gradeRow) toModel() grading.GradeRecord {
	return grading.GradeRecord{
		ID:           r.ID,
		EvaluationID: r.EvaluationID,
		Subject:      grading.Subject{Kind: grading.SubjectKind(r.SubjectKind), ID: r.SubjectID},
		Points:       grading.Points(r.Points),
		Observations: r.Observations.String,
		Published:    r.Published,
		PublishedAt:  fromNullMillis(r.PublishedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}
