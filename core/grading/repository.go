package grading

import (
	"context"
	"time"
)

type (
	// Reader holds the queries of the persistence layer.
	// Getters return the matching Err*NotFound error when nothing is found.
	Reader interface {
		GetGroup(ctx context.Context, id string) (Group, error)
		// FindGroup returns the Group of a (Course, Semester, Number) triple.
		FindGroup(ctx context.Context, course, semester string, number int) (Group, error)
		QueryGroups(ctx context.Context) ([]Group, error)

		GetRubric(ctx context.Context, id string) (Rubric, error)
		// QueryRubricsByGroup returns the rubrics of a group, oldest first.
		QueryRubricsByGroup(ctx context.Context, groupID string) ([]Rubric, error)
		// SumRubricWeights sums the weights of a group's rubrics, ignoring `excludeID` (if any).
		SumRubricWeights(ctx context.Context, groupID, excludeID string) (int, error)

		GetEvaluation(ctx context.Context, id string) (Evaluation, error)
		// QueryEvaluationsByRubric returns the evaluations of a rubric, oldest first.
		QueryEvaluationsByRubric(ctx context.Context, rubricID string) ([]Evaluation, error)
		// SumEvaluationWeights sums the weights of a rubric's evaluations, ignoring `excludeID` (if any).
		SumEvaluationWeights(ctx context.Context, rubricID, excludeID string) (int, error)

		GetWorkGroup(ctx context.Context, id string) (WorkGroup, error)
		// FindWorkGroupByMember returns the WorkGroup of an Evaluation that contains `carnet`.
		FindWorkGroupByMember(ctx context.Context, evaluationID, carnet string) (WorkGroup, error)
		QueryWorkGroupsByEvaluation(ctx context.Context, evaluationID string) ([]WorkGroup, error)

		GetSubmission(ctx context.Context, evaluationID string, subject Subject) (Submission, error)
		QuerySubmissionsByEvaluation(ctx context.Context, evaluationID string) ([]Submission, error)

		GetGradeRecord(ctx context.Context, evaluationID string, subject Subject) (GradeRecord, error)
		QueryGradeRecordsByEvaluation(ctx context.Context, evaluationID string) ([]GradeRecord, error)
	}

	// Writer holds the mutations of the persistence layer. Deletes cascade to owned children.
	Writer interface {
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroup(ctx context.Context, id string) error

		CreateRubric(ctx context.Context, rub Rubric) (Rubric, error)
		UpdateRubric(ctx context.Context, rub Rubric) (Rubric, error)
		DeleteRubric(ctx context.Context, id string) error

		CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
		UpdateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
		DeleteEvaluation(ctx context.Context, id string) error

		CreateWorkGroup(ctx context.Context, wg WorkGroup) (WorkGroup, error)
		AddWorkGroupMember(ctx context.Context, workGroupID, carnet string) error
		RemoveWorkGroupMember(ctx context.Context, workGroupID, carnet string) error

		// UpsertSubmission inserts or replaces the Submission of (EvaluationID, Subject).
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)

		// UpsertGradeRecord inserts or replaces the GradeRecord of (EvaluationID, Subject).
		UpsertGradeRecord(ctx context.Context, rec GradeRecord) (GradeRecord, error)
		PublishGradeRecord(ctx context.Context, evaluationID string, subject Subject, at time.Time) (GradeRecord, error)
	}

	// Tx is a unit of work. The Lock* methods serialize writers on a parent row until the Tx ends
	// and return the locked entity (or its not found error).
	Tx interface {
		Reader
		Writer

		LockGroup(ctx context.Context, id string) (Group, error)
		LockRubric(ctx context.Context, id string) (Rubric, error)
		LockEvaluation(ctx context.Context, id string) (Evaluation, error)
		LockWorkGroup(ctx context.Context, id string) (WorkGroup, error)
	}

	Repository interface {
		Reader

		// RunInTx runs fn in a transaction; it commits if fn returns nil and rolls back otherwise.
		RunInTx(ctx context.Context, fn func(tx Tx) error) error
	}
)

// RosterProvider is the identity/roster collaborator.
type RosterProvider interface {
	// GetStudent returns ErrUnknownStudent when `carnet` is not enrolled in the group.
	GetStudent(ctx context.Context, groupID, carnet string) (Student, error)
}
