package grading

import (
	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

type SubjectKind string

const (
	SubjectIndividual SubjectKind = "individual"
	SubjectWorkGroup  SubjectKind = "workgroup"
)

var errInvalidSubject = errors.New("invalid subject")

// Subject is who gets graded for an Evaluation: a student (by carnet) for individual evaluations
// or a WorkGroup for group evaluations. Build one with Individual or WorkGroupSubject.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func Individual(carnet string) Subject {
	return Subject{Kind: SubjectIndividual, ID: carnet}
}

func WorkGroupSubject(workGroupID string) Subject {
	return Subject{Kind: SubjectWorkGroup, ID: workGroupID}
}

func (s Subject) IsZero() bool { return s.Kind == "" && s.ID == "" }

// Carnet returns the student's carnet of an individual Subject.
func (s Subject) Carnet() (string, bool) {
	return s.ID, s.Kind == SubjectIndividual
}

// WorkGroupID returns the WorkGroup ID of a group Subject.
func (s Subject) WorkGroupID() (string, bool) {
	return s.ID, s.Kind == SubjectWorkGroup
}

// Key is a stable, unique string representation of the Subject, usable as a map key.
func (s Subject) Key() string { return string(s.Kind) + ":" + s.ID }

func (s Subject) String() string { return s.Key() }

// clean trims the Subject ID, so that " S001" and "S001" name the same student.
func (s Subject) clean() Subject {
	s.ID = core.CleanString(s.ID)
	return s
}

func (s Subject) Validate() error {
	if s.ID != "" && (s.Kind == SubjectIndividual || s.Kind == SubjectWorkGroup) {
		return nil
	}
	return core.NewValidationError(errInvalidSubject, core.FieldError{Field: "subject", Error: subjectText})
}

// matches checks that the Subject kind fits the Evaluation's grouping.
func (s Subject) matches(ev Evaluation) bool {
	if ev.IsGroupEvaluation {
		return s.Kind == SubjectWorkGroup
	}
	return s.Kind == SubjectIndividual
}
