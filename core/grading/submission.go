package grading

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

// Submit records a deliverable for an Evaluation. Re-submitting replaces the previous Submission.
//
// On individual evaluations the subject is the acting student.
// On group evaluations it is the acting student's WorkGroup, which must not exceed the group size.
// Late submissions are accepted.
func (svc *Service) Submit(ctx context.Context, ns NewSubmission) (Submission, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Submission{}, err
	}

	var sub Submission
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvaluation(ctx, ns.EvaluationID)
		if err != nil {
			return err
		}

		subject, err := resolveSubmitter(ctx, tx, ev, ns.ActingCarnet, ns.Subject)
		if err != nil {
			return err
		}

		sub, err = tx.UpsertSubmission(ctx, Submission{
			EvaluationID:   ev.ID,
			Subject:        subject,
			SubmittedBy:    ns.ActingCarnet,
			DeliverableRef: ns.DeliverableRef,
			SubmittedAt:    now(),
		})
		return errors.Wrap(err, "saving submission")
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// resolveSubmitter returns the Subject `carnet` submits for on `ev`.
func resolveSubmitter(ctx context.Context, tx Tx, ev Evaluation, carnet string, requested Subject) (Subject, error) {
	if !ev.IsGroupEvaluation {
		if requested.IsZero() {
			return Individual(carnet), nil
		}
		if requested.Kind != SubjectIndividual {
			return Subject{}, ErrSubjectKindMismatch
		}
		if requested.ID != carnet {
			return Subject{}, core.NewValidationError(nil, core.FieldError{
				Field: "subject",
				Error: "students can only submit for themselves",
			})
		}
		return requested, nil
	}

	if !requested.IsZero() && requested.Kind != SubjectWorkGroup {
		return Subject{}, ErrSubjectKindMismatch
	}

	var wg WorkGroup
	var err error
	if requested.IsZero() {
		wg, err = tx.FindWorkGroupByMember(ctx, ev.ID, carnet)
		if errors.Cause(err) == ErrWorkGroupNotFound {
			return Subject{}, ErrSubjectNotInGroup
		}
	} else {
		wg, err = tx.LockWorkGroup(ctx, requested.ID)
		if err == nil && wg.EvaluationID != ev.ID {
			err = ErrWorkGroupNotFound
		}
	}
	if err != nil {
		return Subject{}, err
	}

	if !wg.HasMember(carnet) {
		return Subject{}, ErrSubjectNotInGroup
	}
	if len(wg.Members) > ev.GroupSize {
		return Subject{}, &GroupFullError{WorkGroupID: wg.ID, GroupSize: ev.GroupSize}
	}
	return wg.Subject(), nil
}

// GetSubmission returns the Submission of `subject` for an Evaluation.
func (svc *Service) GetSubmission(ctx context.Context, evaluationID string, subject Subject) (Submission, error) {
	subject, err := svc.cleanSubject(subject)
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, evaluationID, subject)
}

func (svc *Service) ListSubmissions(ctx context.Context, evaluationID string) ([]Submission, error) {
	if _, err := svc.repo.GetEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissionsByEvaluation(ctx, evaluationID)
}
