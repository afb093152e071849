package grading

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// not found errors
	ErrGroupNotFound      = errors.New("group not found")
	ErrRubricNotFound     = errors.New("rubric not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrWorkGroupNotFound  = errors.New("work group not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrGradeNotFound      = errors.New("grade record not found")

	// work group & subject errors
	ErrSubjectNotInGroup   = errors.New("student is not a member of the work group")
	ErrAlreadyInWorkGroup  = errors.New("student already belongs to a work group for this evaluation")
	ErrNotGroupEvaluation  = errors.New("evaluation is not a group evaluation")
	ErrSubjectKindMismatch = errors.New("subject kind does not match the evaluation grouping")

	ErrGroupExists      = errors.New("a group with this course, semester and number already exists")
	ErrRubricNameExists = errors.New("a rubric with this name already exists in the group")
	ErrUnknownStudent   = errors.New("unknown student")
)

// IsNotFound reports whether err is (or wraps) one of the not found errors.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrGroupNotFound, ErrRubricNotFound, ErrEvaluationNotFound, ErrWorkGroupNotFound,
		ErrSubmissionNotFound, ErrGradeNotFound:
		return true
	}
	return false
}

// ParentRef identifies the owner of a percentage budget.
type ParentRef struct {
	Kind string `json:"kind"` // "group" | "rubric"
	ID   string `json:"id"`
}

func GroupParent(id string) ParentRef  { return ParentRef{Kind: "group", ID: id} }
func RubricParent(id string) ParentRef { return ParentRef{Kind: "rubric", ID: id} }

// BudgetExceededError is returned when a write would push the children weights of a parent over its budget.
type BudgetExceededError struct {
	Parent    ParentRef
	Current   int // sum of the other children
	Attempted int
	Budget    int
}

func (e *BudgetExceededError) SumAfter() int { return e.Current + e.Attempted }

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf(
		"weights of %s %s would sum to %d%% (current %d%% + attempted %d%%), exceeding its %d%% budget",
		e.Parent.Kind, e.Parent.ID, e.SumAfter(), e.Current, e.Attempted, e.Budget)
}

// OutOfRangeError is returned when grade points fall outside [0, Evaluation.Weight].
type OutOfRangeError struct {
	EvaluationID string
	Points       Points
	Max          Points
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("points %s out of range [0, %s] for evaluation %s", e.Points, e.Max, e.EvaluationID)
}

// ProtectedEntityError is returned when deleting one of the default rubrics.
type ProtectedEntityError struct {
	RubricID string
	Name     string
}

func (e *ProtectedEntityError) Error() string {
	return fmt.Sprintf("rubric %q is a default rubric and cannot be deleted", e.Name)
}

// GroupFullError is returned when a WorkGroup already holds Evaluation.GroupSize members.
type GroupFullError struct {
	WorkGroupID string
	GroupSize   int
}

func (e *GroupFullError) Error() string {
	return fmt.Sprintf("work group %s is full (%d members max)", e.WorkGroupID, e.GroupSize)
}
