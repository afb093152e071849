package grading

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

// CreateEvaluation adds an Evaluation to a Rubric, provided the Rubric's evaluation weights stay within its own weight.
func (svc *Service) CreateEvaluation(ctx context.Context, ne NewEvaluation) (Evaluation, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Evaluation{}, err
	}

	var ev Evaluation
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		rub, err := tx.LockRubric(ctx, ne.RubricID)
		if err != nil {
			return err
		}

		sum, err := tx.SumEvaluationWeights(ctx, rub.ID, "")
		if err != nil {
			return errors.Wrap(err, "summing evaluation weights")
		}
		if err := CheckAndReserve(RubricParent(rub.ID), sum, ne.Weight, rub.Weight); err != nil {
			return err
		}

		tstamp := now()
		ev, err = tx.CreateEvaluation(ctx, Evaluation{
			RubricID:            rub.ID,
			Name:                ne.Name,
			DueDateTime:         ne.DueDateTime,
			Weight:              ne.Weight,
			IsGroupEvaluation:   ne.IsGroupEvaluation,
			GroupSize:           ne.GroupSize,
			RequiresDeliverable: ne.RequiresDeliverable,
			CreatedAt:           tstamp,
			UpdatedAt:           tstamp,
		})
		return errors.Wrap(err, "creating evaluation")
	})
	if err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

// UpdateEvaluation modifies an Evaluation. Its weight cannot drop below the points already awarded,
// and the group size of a group evaluation cannot drop below its largest WorkGroup.
func (svc *Service) UpdateEvaluation(ctx context.Context, id string, ue UpdateEvaluation) (Evaluation, error) {
	if err := ue.Validate(svc.validate); err != nil {
		return Evaluation{}, err
	}

	current, err := svc.repo.GetEvaluation(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}

	var ev Evaluation
	err = svc.repo.RunInTx(ctx, func(tx Tx) error {
		// lock order: rubric, then evaluation
		rub, err := tx.LockRubric(ctx, current.RubricID)
		if err != nil {
			return err
		}
		if ev, err = tx.LockEvaluation(ctx, id); err != nil {
			return err
		}

		sum, err := tx.SumEvaluationWeights(ctx, rub.ID, ev.ID)
		if err != nil {
			return errors.Wrap(err, "summing evaluation weights")
		}
		if err := CheckAndReserve(RubricParent(rub.ID), sum, ue.Weight, rub.Weight); err != nil {
			return err
		}

		if ue.Weight < ev.Weight {
			if err := checkAwardedPoints(ctx, tx, ev.ID, PointsFromWeight(ue.Weight)); err != nil {
				return err
			}
		}

		if ev.IsGroupEvaluation {
			if ue.GroupSize < 1 {
				return core.NewValidationError(nil, core.FieldError{Field: "group_size", Error: groupSizeText})
			}
			if ue.GroupSize < ev.GroupSize {
				if err := checkWorkGroupSizes(ctx, tx, ev.ID, ue.GroupSize); err != nil {
					return err
				}
			}
			ev.GroupSize = ue.GroupSize
		}

		ev.Name = ue.Name
		ev.DueDateTime = ue.DueDateTime
		ev.Weight = ue.Weight
		ev.RequiresDeliverable = ue.RequiresDeliverable
		ev.UpdatedAt = now()
		ev, err = tx.UpdateEvaluation(ctx, ev)
		return errors.Wrap(err, "updating evaluation")
	})
	if err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

func checkAwardedPoints(ctx context.Context, tx Tx, evaluationID string, max Points) error {
	records, err := tx.QueryGradeRecordsByEvaluation(ctx, evaluationID)
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}
	for _, rec := range records {
		if rec.Points > max {
			return core.NewValidationError(nil, core.FieldError{
				Field: "weight",
				Error: fmt.Sprintf("weight cannot be lower than the %s points already awarded", rec.Points),
			})
		}
	}
	return nil
}

func checkWorkGroupSizes(ctx context.Context, tx Tx, evaluationID string, size int) error {
	wgs, err := tx.QueryWorkGroupsByEvaluation(ctx, evaluationID)
	if err != nil {
		return errors.Wrap(err, "querying work groups")
	}
	for _, wg := range wgs {
		if len(wg.Members) > size {
			return core.NewValidationError(nil, core.FieldError{
				Field: "group_size",
				Error: fmt.Sprintf("work group %q already has %d members", wg.Name, len(wg.Members)),
			})
		}
	}
	return nil
}

// DeleteEvaluation deletes an Evaluation and its work groups, submissions and grade records.
func (svc *Service) DeleteEvaluation(ctx context.Context, id string) error {
	return svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.LockEvaluation(ctx, id); err != nil {
			return err
		}
		return tx.DeleteEvaluation(ctx, id)
	})
}

func (svc *Service) GetEvaluation(ctx context.Context, id string) (Evaluation, error) {
	return svc.repo.GetEvaluation(ctx, id)
}

// ListEvaluations returns the evaluations of a Rubric, oldest first.
func (svc *Service) ListEvaluations(ctx context.Context, rubricID string) ([]Evaluation, error) {
	if _, err := svc.repo.GetRubric(ctx, rubricID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEvaluationsByRubric(ctx, rubricID)
}
