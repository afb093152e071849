package grading

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/notas/core"
)

// CourseBudget is the percentage a Group's rubrics may share.
const CourseBudget = 100

// Default rubrics, created with every Group
const (
	RubricPresentations = "Exposiciones"
	RubricQuizzes       = "Quices"
	RubricExams         = "Exámenes"
	RubricProjects      = "Proyectos"
)

var DefaultRubricNames = []string{RubricPresentations, RubricQuizzes, RubricExams, RubricProjects}

// IsProtectedName reports whether `name` is one of the default rubric names.
func IsProtectedName(name string) bool {
	name = core.CleanString(name, true /* lower */)
	for _, dflt := range DefaultRubricNames {
		if strings.ToLower(dflt) == name {
			return true
		}
	}
	return false
}

type Group struct {
	ID        string    `json:"id"`
	Course    string    `json:"course"`
	Semester  string    `json:"semester"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Rubric struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Name      string    `json:"name"`
	Weight    int       `json:"weight"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (r Rubric) IsProtected() bool { return IsProtectedName(r.Name) }

type Evaluation struct {
	ID                  string    `json:"id"`
	RubricID            string    `json:"rubric_id"`
	Name                string    `json:"name"`
	DueDateTime         time.Time `json:"due_date_time"` // UTC
	Weight              int       `json:"weight"`
	IsGroupEvaluation   bool      `json:"is_group_evaluation"`
	GroupSize           int       `json:"group_size"`
	RequiresDeliverable bool      `json:"requires_deliverable"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// MaxPoints is the highest grade an Evaluation can award.
func (ev Evaluation) MaxPoints() Points { return PointsFromWeight(ev.Weight) }

// IsCountable reports whether the Evaluation takes part in consolidation.
// Evaluations without deliverable are informational, and a zero weight would only add 0/0 terms.
func (ev Evaluation) IsCountable() bool { return ev.RequiresDeliverable && ev.Weight > 0 }

// IsPastDue is a presentation helper; submissions are never rejected for being late.
func (ev Evaluation) IsPastDue(now time.Time) bool {
	return !ev.DueDateTime.IsZero() && now.After(ev.DueDateTime)
}

type WorkGroup struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluation_id"`
	Name         string    `json:"name"`
	Members      []string  `json:"members"` // carnets
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (wg WorkGroup) HasMember(carnet string) bool {
	for _, m := range wg.Members {
		if m == carnet {
			return true
		}
	}
	return false
}

func (wg WorkGroup) Subject() Subject { return WorkGroupSubject(wg.ID) }

type Submission struct {
	ID             string    `json:"id"`
	EvaluationID   string    `json:"evaluation_id"`
	Subject        Subject   `json:"subject"`
	SubmittedBy    string    `json:"submitted_by"` // carnet
	DeliverableRef string    `json:"deliverable_ref"`
	SubmittedAt    time.Time `json:"submitted_at"` // UTC
}

type GradeRecord struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluation_id"`
	Subject      Subject   `json:"subject"`
	Points       Points    `json:"points"`
	Observations string    `json:"observations,omitempty"`
	Published    bool      `json:"published"`
	PublishedAt  time.Time `json:"published_at,omitempty"` // UTC
	UpdatedAt    time.Time `json:"updated_at"`             // UTC
}

// Student is a roster entry, as supplied by the identity/roster provider.
type Student struct {
	Carnet string `json:"carnet"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Course   string `json:"course" validate:"required,notblank,max=100"`
	Semester string `json:"semester" validate:"required,notblank,max=20"`
	Number   int    `json:"number" validate:"min=1"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Course = core.CleanString(ng.Course)
	ng.Semester = core.CleanString(ng.Semester)
	return validate.Struct(ng)
}

// NewRubric contains information needed to create a new Rubric.
type NewRubric struct {
	GroupID string `json:"group_id" validate:"required"`
	Name    string `json:"name" validate:"required,notblank,max=100"`
	Weight  int    `json:"weight" validate:"min=0,max=100"`
}

func (nr *NewRubric) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	return validate.Struct(nr)
}

// UpdateRubric defines what information may be provided to modify an existing Rubric.
type UpdateRubric struct {
	Name   string `json:"name" validate:"required,notblank,max=100"`
	Weight int    `json:"weight" validate:"min=0,max=100"`
}

func (ur *UpdateRubric) Validate(validate *validator.Validate) error {
	ur.Name = core.CleanString(ur.Name)
	return validate.Struct(ur)
}

// NewEvaluation contains information needed to create a new Evaluation.
type NewEvaluation struct {
	RubricID            string    `json:"rubric_id" validate:"required"`
	Name                string    `json:"name" validate:"required,notblank,max=100"`
	DueDateTime         time.Time `json:"due_date_time" validate:"required"`
	Weight              int       `json:"weight" validate:"min=0,max=100"`
	IsGroupEvaluation   bool      `json:"is_group_evaluation"`
	GroupSize           int       `json:"group_size" validate:"min=0"`
	RequiresDeliverable bool      `json:"requires_deliverable"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.DueDateTime = ne.DueDateTime.UTC()
	if !ne.IsGroupEvaluation {
		ne.GroupSize = 0
	}
	return validate.Struct(ne)
}

// UpdateEvaluation defines what information may be provided to modify an existing Evaluation.
// The grouping mode of an Evaluation cannot change once created.
type UpdateEvaluation struct {
	Name                string    `json:"name" validate:"required,notblank,max=100"`
	DueDateTime         time.Time `json:"due_date_time" validate:"required"`
	Weight              int       `json:"weight" validate:"min=0,max=100"`
	GroupSize           int       `json:"group_size" validate:"min=0"`
	RequiresDeliverable bool      `json:"requires_deliverable"`
}

func (ue *UpdateEvaluation) Validate(validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	ue.DueDateTime = ue.DueDateTime.UTC()
	return validate.Struct(ue)
}

// NewWorkGroup contains information needed to create a new WorkGroup.
type NewWorkGroup struct {
	EvaluationID string   `json:"evaluation_id" validate:"required"`
	Name         string   `json:"name" validate:"required,notblank,max=100"`
	Members      []string `json:"members" validate:"omitempty,unique,dive,required,alphanum_"`
}

func (nw *NewWorkGroup) Validate(validate *validator.Validate) error {
	nw.Name = core.CleanString(nw.Name)
	for i, m := range nw.Members {
		nw.Members[i] = core.CleanString(m)
	}
	return validate.Struct(nw)
}

// NewSubmission contains information needed to record a Submission.
// Subject may be left empty: it is then resolved from the acting student.
type NewSubmission struct {
	EvaluationID   string  `json:"evaluation_id" validate:"required"`
	ActingCarnet   string  `json:"carnet" validate:"required,alphanum_"`
	Subject        Subject `json:"subject"`
	DeliverableRef string  `json:"deliverable_ref" validate:"max=500"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.ActingCarnet = core.CleanString(ns.ActingCarnet)
	ns.DeliverableRef = core.CleanString(ns.DeliverableRef)
	ns.Subject = ns.Subject.clean()
	return validate.Struct(ns)
}

// NewGrade contains information needed to set a GradeRecord.
type NewGrade struct {
	EvaluationID string  `json:"evaluation_id" validate:"required"`
	Subject      Subject `json:"subject"`
	Points       Points  `json:"points"`
	Observations string  `json:"observations" validate:"max=2000"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Subject = ng.Subject.clean()
	ng.Observations = core.CleanString(ng.Observations)
	return validate.Struct(ng)
}
