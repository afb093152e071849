package grading

import (
	"context"

	"github.com/pkg/errors"
)

// CreateWorkGroup creates a WorkGroup for a group Evaluation.
// A student may only belong to one WorkGroup per Evaluation.
func (svc *Service) CreateWorkGroup(ctx context.Context, nw NewWorkGroup) (WorkGroup, error) {
	if err := nw.Validate(svc.validate); err != nil {
		return WorkGroup{}, err
	}

	var wg WorkGroup
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvaluation(ctx, nw.EvaluationID)
		if err != nil {
			return err
		}
		if !ev.IsGroupEvaluation {
			return ErrNotGroupEvaluation
		}
		if len(nw.Members) > ev.GroupSize {
			return &GroupFullError{GroupSize: ev.GroupSize}
		}
		for _, carnet := range nw.Members {
			if err := checkNotInWorkGroup(ctx, tx, ev.ID, carnet); err != nil {
				return err
			}
		}

		members := make([]string, len(nw.Members))
		copy(members, nw.Members)
		wg, err = tx.CreateWorkGroup(ctx, WorkGroup{
			EvaluationID: ev.ID,
			Name:         nw.Name,
			Members:      members,
			CreatedAt:    now(),
		})
		return errors.Wrap(err, "creating work group")
	})
	if err != nil {
		return WorkGroup{}, err
	}
	return wg, nil
}

func checkNotInWorkGroup(ctx context.Context, tx Tx, evaluationID, carnet string) error {
	_, err := tx.FindWorkGroupByMember(ctx, evaluationID, carnet)
	switch errors.Cause(err) {
	case nil:
		return ErrAlreadyInWorkGroup
	case ErrWorkGroupNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding work group")
	}
}

// JoinWorkGroup adds a student to a WorkGroup. Joining a WorkGroup twice is a no-op.
func (svc *Service) JoinWorkGroup(ctx context.Context, workGroupID, carnet string) (WorkGroup, error) {
	carnet, err := svc.cleanCarnet(carnet)
	if err != nil {
		return WorkGroup{}, err
	}

	current, err := svc.repo.GetWorkGroup(ctx, workGroupID)
	if err != nil {
		return WorkGroup{}, err
	}

	var wg WorkGroup
	err = svc.repo.RunInTx(ctx, func(tx Tx) error {
		// membership is unique per evaluation: serialize on it first
		ev, err := tx.LockEvaluation(ctx, current.EvaluationID)
		if err != nil {
			return err
		}
		if wg, err = tx.LockWorkGroup(ctx, workGroupID); err != nil {
			return err
		}
		if wg.HasMember(carnet) {
			return nil
		}
		if err := checkNotInWorkGroup(ctx, tx, ev.ID, carnet); err != nil {
			return err
		}
		if len(wg.Members) >= ev.GroupSize {
			return &GroupFullError{WorkGroupID: wg.ID, GroupSize: ev.GroupSize}
		}

		if err := tx.AddWorkGroupMember(ctx, wg.ID, carnet); err != nil {
			return errors.Wrap(err, "adding work group member")
		}
		wg.Members = append(wg.Members, carnet)
		return nil
	})
	if err != nil {
		return WorkGroup{}, err
	}
	return wg, nil
}

// LeaveWorkGroup removes a student from a WorkGroup.
func (svc *Service) LeaveWorkGroup(ctx context.Context, workGroupID, carnet string) (WorkGroup, error) {
	carnet, err := svc.cleanCarnet(carnet)
	if err != nil {
		return WorkGroup{}, err
	}

	current, err := svc.repo.GetWorkGroup(ctx, workGroupID)
	if err != nil {
		return WorkGroup{}, err
	}

	var wg WorkGroup
	err = svc.repo.RunInTx(ctx, func(tx Tx) error {
		if _, err := tx.LockEvaluation(ctx, current.EvaluationID); err != nil {
			return err
		}
		var err error
		if wg, err = tx.LockWorkGroup(ctx, workGroupID); err != nil {
			return err
		}
		if !wg.HasMember(carnet) {
			return ErrSubjectNotInGroup
		}
		if err := tx.RemoveWorkGroupMember(ctx, wg.ID, carnet); err != nil {
			return errors.Wrap(err, "removing work group member")
		}

		members := make([]string, 0, len(wg.Members)-1)
		for _, m := range wg.Members {
			if m != carnet {
				members = append(members, m)
			}
		}
		wg.Members = members
		return nil
	})
	if err != nil {
		return WorkGroup{}, err
	}
	return wg, nil
}

func (svc *Service) GetWorkGroup(ctx context.Context, id string) (WorkGroup, error) {
	return svc.repo.GetWorkGroup(ctx, id)
}

func (svc *Service) ListWorkGroups(ctx context.Context, evaluationID string) ([]WorkGroup, error) {
	if _, err := svc.repo.GetEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	return svc.repo.QueryWorkGroupsByEvaluation(ctx, evaluationID)
}
