package grading

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

// CreateGroup creates a Group together with its default rubrics (all weighted 0).
func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, []Rubric, error) {
	if err := ng.Validate(svc.validate); err != nil {
		return Group{}, nil, err
	}

	var grp Group
	var rubrics []Rubric
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		_, err := tx.FindGroup(ctx, ng.Course, ng.Semester, ng.Number)
		switch errors.Cause(err) {
		case nil:
			return core.NewValidationError(ErrGroupExists, core.FieldError{Field: "number", Error: ErrGroupExists.Error()})
		case ErrGroupNotFound:
		default:
			return errors.Wrap(err, "finding group")
		}

		tstamp := now()
		grp, err = tx.CreateGroup(ctx, Group{
			Course:    ng.Course,
			Semester:  ng.Semester,
			Number:    ng.Number,
			CreatedAt: tstamp,
		})
		if err != nil {
			return errors.Wrap(err, "creating group")
		}

		rubrics = make([]Rubric, 0, len(DefaultRubricNames))
		for _, name := range DefaultRubricNames {
			rub, err := tx.CreateRubric(ctx, Rubric{
				GroupID:   grp.ID,
				Name:      name,
				CreatedAt: tstamp,
				UpdatedAt: tstamp,
			})
			if err != nil {
				return errors.Wrapf(err, "creating default rubric %q", name)
			}
			rubrics = append(rubrics, rub)
		}
		return nil
	})
	if err != nil {
		return Group{}, nil, err
	}

	svc.logger.Info("group created", grp.ID, grp.Course, grp.Semester, grp.Number)
	return grp, rubrics, nil
}

func (svc *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryGroups(ctx)
}

// DeleteGroup deletes a Group along with everything it owns.
func (svc *Service) DeleteGroup(ctx context.Context, id string) error {
	return svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.LockGroup(ctx, id); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx, id)
	})
}
