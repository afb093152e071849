package grading

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/notas/core"
)

type EvaluationStatus string

const (
	StatusGraded        EvaluationStatus = "graded"        // published grade
	StatusUnpublished   EvaluationStatus = "unpublished"   // graded, not visible yet: counts as 0
	StatusMissing       EvaluationStatus = "missing"       // no grade (or no work group): counts as 0
	StatusInformational EvaluationStatus = "informational" // not countable
)

type EvaluationResult struct {
	EvaluationID string           `json:"evaluation_id"`
	Name         string           `json:"name"`
	Weight       int              `json:"weight"`
	Status       EvaluationStatus `json:"status"`
	Points       Points           `json:"points"` // published points only
}

type RubricResult struct {
	RubricID             string             `json:"rubric_id"`
	RubricName           string             `json:"rubric_name"`
	RubricWeight         int                `json:"rubric_weight"`
	ObtainedWithinRubric float64            `json:"obtained_within_rubric"`
	Evaluations          []EvaluationResult `json:"evaluations"`
}

// Consolidation is a student's weighted course grade, with its per-rubric breakdown.
// Values are rounded to two decimals.
type Consolidation struct {
	GroupID    string         `json:"group_id"`
	Carnet     string         `json:"carnet"`
	Student    Student        `json:"student"`
	PerRubric  []RubricResult `json:"per_rubric"`
	TotalGrade float64        `json:"total_grade"`
	Error      string         `json:"error,omitempty"` // class reports only: why the student has no result
}

// Consolidate rolls up the published grades of a student into the course grade of a Group.
//
// Within a rubric, only evaluations requiring a deliverable with a positive weight count: the rubric
// contributes (Σ published points / Σ countable weights) × rubric weight. Unpublished and missing grades
// count as 0 but keep their weight. The only error is ErrUnknownStudent; any other failure is logged
// and degrades to zero contributions.
func (svc *Service) Consolidate(ctx context.Context, carnet, groupID string) (Consolidation, error) {
	carnet = core.CleanString(carnet)
	res := Consolidation{GroupID: groupID, Carnet: carnet, PerRubric: []RubricResult{}}

	st, err := svc.roster.GetStudent(ctx, groupID, carnet)
	if err != nil {
		if errors.Cause(err) == ErrUnknownStudent {
			return Consolidation{}, ErrUnknownStudent
		}
		svc.logger.Warn("consolidate: roster lookup failed", groupID, carnet, err)
		st = Student{Carnet: carnet}
	}
	res.Student = st

	rubrics, err := svc.repo.QueryRubricsByGroup(ctx, groupID)
	if err != nil {
		svc.logger.Error("consolidate: querying rubrics failed", groupID, err)
		return res, nil
	}

	var total float64
	for _, rub := range rubrics {
		rr, contribution := svc.consolidateRubric(ctx, rub, carnet)
		total += contribution
		res.PerRubric = append(res.PerRubric, rr)
	}
	res.TotalGrade = core.Round(total, 2)
	return res, nil
}

// consolidateRubric returns the rubric's (rounded) result and its unrounded contribution.
func (svc *Service) consolidateRubric(ctx context.Context, rub Rubric, carnet string) (RubricResult, float64) {
	rr := RubricResult{
		RubricID:     rub.ID,
		RubricName:   rub.Name,
		RubricWeight: rub.Weight,
		Evaluations:  []EvaluationResult{},
	}

	evals, err := svc.repo.QueryEvaluationsByRubric(ctx, rub.ID)
	if err != nil {
		svc.logger.Error("consolidate: querying evaluations failed", rub.ID, err)
		return rr, 0
	}

	var obtained, maxPts Points
	for _, ev := range evals {
		er := EvaluationResult{EvaluationID: ev.ID, Name: ev.Name, Weight: ev.Weight}
		if !ev.IsCountable() {
			er.Status = StatusInformational
			rr.Evaluations = append(rr.Evaluations, er)
			continue
		}

		maxPts += ev.MaxPoints()
		er.Status = StatusMissing
		if rec, ok := svc.studentGrade(ctx, ev, carnet); ok {
			if rec.Published {
				er.Status = StatusGraded
				er.Points = rec.Points
				obtained += rec.Points
			} else {
				er.Status = StatusUnpublished
			}
		}
		rr.Evaluations = append(rr.Evaluations, er)
	}

	var contribution float64
	if maxPts > 0 {
		contribution = obtained.Float64() / maxPts.Float64() * float64(rub.Weight)
	}
	rr.ObtainedWithinRubric = core.Round(contribution, 2)
	return rr, contribution
}

// studentGrade returns the GradeRecord that applies to `carnet` on `ev`, if any.
func (svc *Service) studentGrade(ctx context.Context, ev Evaluation, carnet string) (GradeRecord, bool) {
	subject := Individual(carnet)
	if ev.IsGroupEvaluation {
		wg, err := svc.repo.FindWorkGroupByMember(ctx, ev.ID, carnet)
		if err != nil {
			if errors.Cause(err) != ErrWorkGroupNotFound {
				svc.logger.Error("consolidate: finding work group failed", ev.ID, carnet, err)
			}
			return GradeRecord{}, false
		}
		subject = wg.Subject()
	}

	rec, err := svc.repo.GetGradeRecord(ctx, ev.ID, subject)
	if err != nil {
		if errors.Cause(err) != ErrGradeNotFound {
			svc.logger.Error("consolidate: getting grade record failed", ev.ID, subject, err)
		}
		return GradeRecord{}, false
	}
	return rec, true
}

// ConsolidateAll consolidates the grades of several students of a Group concurrently.
// Results keep the order of `carnets`. An unknown student does not fail the report: its entry
// carries a zero total and the error message.
func (svc *Service) ConsolidateAll(ctx context.Context, groupID string, carnets []string) ([]Consolidation, error) {
	results := make([]Consolidation, len(carnets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.reportWorkers)
	for i, carnet := range carnets {
		i, carnet := i, carnet
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := svc.Consolidate(gctx, carnet, groupID)
			switch {
			case errors.Cause(err) == ErrUnknownStudent:
				res = Consolidation{
					GroupID:   groupID,
					Carnet:    core.CleanString(carnet),
					PerRubric: []RubricResult{},
					Error:     err.Error(),
				}
			case err != nil:
				return errors.Wrapf(err, "consolidating %s", carnet)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
