package grading

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

// checkRubricName fails if another rubric of the group (other than `excludeID`) is already called `name`.
func checkRubricName(ctx context.Context, tx Tx, groupID, name, excludeID string) error {
	rubrics, err := tx.QueryRubricsByGroup(ctx, groupID)
	if err != nil {
		return errors.Wrap(err, "querying rubrics")
	}
	for _, rub := range rubrics {
		if rub.ID != excludeID && strings.EqualFold(rub.Name, name) {
			return core.NewValidationError(ErrRubricNameExists, core.FieldError{Field: "name", Error: ErrRubricNameExists.Error()})
		}
	}
	return nil
}

// CreateRubric adds a Rubric to a Group, provided the Group's rubric weights stay within 100%.
func (svc *Service) CreateRubric(ctx context.Context, nr NewRubric) (Rubric, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Rubric{}, err
	}

	var rub Rubric
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.LockGroup(ctx, nr.GroupID); err != nil {
			return err
		}
		if err := checkRubricName(ctx, tx, nr.GroupID, nr.Name, ""); err != nil {
			return err
		}

		sum, err := tx.SumRubricWeights(ctx, nr.GroupID, "")
		if err != nil {
			return errors.Wrap(err, "summing rubric weights")
		}
		if err := CheckAndReserve(GroupParent(nr.GroupID), sum, nr.Weight, CourseBudget); err != nil {
			return err
		}

		tstamp := now()
		rub, err = tx.CreateRubric(ctx, Rubric{
			GroupID:   nr.GroupID,
			Name:      nr.Name,
			Weight:    nr.Weight,
			CreatedAt: tstamp,
			UpdatedAt: tstamp,
		})
		return errors.Wrap(err, "creating rubric")
	})
	if err != nil {
		return Rubric{}, err
	}
	return rub, nil
}

// UpdateRubric renames and/or re-weights a Rubric.
// The new weight must fit the Group's budget and still hold the weights of the Rubric's evaluations.
func (svc *Service) UpdateRubric(ctx context.Context, id string, ur UpdateRubric) (Rubric, error) {
	if err := ur.Validate(svc.validate); err != nil {
		return Rubric{}, err
	}

	current, err := svc.repo.GetRubric(ctx, id)
	if err != nil {
		return Rubric{}, err
	}

	var rub Rubric
	err = svc.repo.RunInTx(ctx, func(tx Tx) error {
		// lock order: group, then rubric
		if _, err := tx.LockGroup(ctx, current.GroupID); err != nil {
			return err
		}
		var err error
		if rub, err = tx.LockRubric(ctx, id); err != nil {
			return err
		}
		if err := checkRubricName(ctx, tx, rub.GroupID, ur.Name, rub.ID); err != nil {
			return err
		}

		sum, err := tx.SumRubricWeights(ctx, rub.GroupID, rub.ID)
		if err != nil {
			return errors.Wrap(err, "summing rubric weights")
		}
		if err := CheckAndReserve(GroupParent(rub.GroupID), sum, ur.Weight, CourseBudget); err != nil {
			return err
		}

		if ur.Weight < rub.Weight {
			evSum, err := tx.SumEvaluationWeights(ctx, rub.ID, "")
			if err != nil {
				return errors.Wrap(err, "summing evaluation weights")
			}
			if err := CheckAndReserve(RubricParent(rub.ID), evSum, 0, ur.Weight); err != nil {
				return err
			}
		}

		rub.Name = ur.Name
		rub.Weight = ur.Weight
		rub.UpdatedAt = now()
		rub, err = tx.UpdateRubric(ctx, rub)
		return errors.Wrap(err, "updating rubric")
	})
	if err != nil {
		return Rubric{}, err
	}
	return rub, nil
}

// DeleteRubric deletes a Rubric and its evaluations. Default rubrics cannot be deleted.
func (svc *Service) DeleteRubric(ctx context.Context, id string) error {
	return svc.repo.RunInTx(ctx, func(tx Tx) error {
		rub, err := tx.LockRubric(ctx, id)
		if err != nil {
			return err
		}
		if rub.IsProtected() {
			return &ProtectedEntityError{RubricID: rub.ID, Name: rub.Name}
		}
		return tx.DeleteRubric(ctx, id)
	})
}

func (svc *Service) GetRubric(ctx context.Context, id string) (Rubric, error) {
	return svc.repo.GetRubric(ctx, id)
}

// ListRubrics returns the rubrics of a Group, oldest first.
func (svc *Service) ListRubrics(ctx context.Context, groupID string) ([]Rubric, error) {
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRubricsByGroup(ctx, groupID)
}
