package grading

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/notas/core"
)

// SetGrade sets the points of a subject for an Evaluation, replacing any previous grade.
// Points must lie within [0, Evaluation.Weight]. A (re)graded record is unpublished until Publish.
func (svc *Service) SetGrade(
	ctx context.Context,
	evaluationID string,
	subject Subject,
	points Points,
	observations string,
) (GradeRecord, error) {
	return svc.setGrade(ctx, NewGrade{
		EvaluationID: evaluationID,
		Subject:      subject,
		Points:       points,
		Observations: observations,
	})
}

func (svc *Service) setGrade(ctx context.Context, ng NewGrade) (GradeRecord, error) {
	if err := ng.Validate(svc.validate); err != nil {
		return GradeRecord{}, err
	}

	var rec GradeRecord
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvaluation(ctx, ng.EvaluationID)
		if err != nil {
			return err
		}
		if !ng.Subject.matches(ev) {
			return ErrSubjectKindMismatch
		}
		if wgID, ok := ng.Subject.WorkGroupID(); ok {
			wg, err := tx.GetWorkGroup(ctx, wgID)
			if err != nil {
				return err
			}
			if wg.EvaluationID != ev.ID {
				return ErrWorkGroupNotFound
			}
		}
		if maxPts := ev.MaxPoints(); ng.Points < 0 || ng.Points > maxPts {
			return &OutOfRangeError{EvaluationID: ev.ID, Points: ng.Points, Max: maxPts}
		}

		rec, err = tx.UpsertGradeRecord(ctx, GradeRecord{
			EvaluationID: ev.ID,
			Subject:      ng.Subject,
			Points:       ng.Points,
			Observations: ng.Observations,
			UpdatedAt:    now(),
		})
		return errors.Wrap(err, "saving grade record")
	})
	if err != nil {
		return GradeRecord{}, err
	}
	return rec, nil
}

// Publish makes a GradeRecord visible to its subject. Publishing twice is a no-op.
func (svc *Service) Publish(ctx context.Context, evaluationID string, subject Subject) (GradeRecord, error) {
	subject, err := svc.cleanSubject(subject)
	if err != nil {
		return GradeRecord{}, err
	}

	var ev Evaluation
	var rec GradeRecord
	var published bool
	err = svc.repo.RunInTx(ctx, func(tx Tx) error {
		var err error
		if ev, err = tx.LockEvaluation(ctx, evaluationID); err != nil {
			return err
		}
		if rec, err = tx.GetGradeRecord(ctx, evaluationID, subject); err != nil {
			return err
		}
		if rec.Published {
			return nil
		}
		rec, err = tx.PublishGradeRecord(ctx, evaluationID, subject, now())
		published = err == nil
		return errors.Wrap(err, "publishing grade record")
	})
	if err != nil {
		return GradeRecord{}, err
	}

	if published {
		svc.notifyPublished(ctx, ev, rec)
	}
	return rec, nil
}

// PublishAll publishes every unpublished GradeRecord of an Evaluation and returns how many were published.
func (svc *Service) PublishAll(ctx context.Context, evaluationID string) (int, error) {
	var ev Evaluation
	var published []GradeRecord
	err := svc.repo.RunInTx(ctx, func(tx Tx) error {
		var err error
		if ev, err = tx.LockEvaluation(ctx, evaluationID); err != nil {
			return err
		}
		records, err := tx.QueryGradeRecordsByEvaluation(ctx, evaluationID)
		if err != nil {
			return errors.Wrap(err, "querying grade records")
		}

		tstamp := now()
		for _, rec := range records {
			if rec.Published {
				continue
			}
			rec, err = tx.PublishGradeRecord(ctx, evaluationID, rec.Subject, tstamp)
			if err != nil {
				return errors.Wrap(err, "publishing grade record")
			}
			published = append(published, rec)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	svc.notifyPublished(ctx, ev, published...)
	return len(published), nil
}

// GetGrade returns the GradeRecord of `subject` for an Evaluation, published or not.
func (svc *Service) GetGrade(ctx context.Context, evaluationID string, subject Subject) (GradeRecord, error) {
	subject, err := svc.cleanSubject(subject)
	if err != nil {
		return GradeRecord{}, err
	}
	return svc.repo.GetGradeRecord(ctx, evaluationID, subject)
}

func (svc *Service) ListGrades(ctx context.Context, evaluationID string) ([]GradeRecord, error) {
	if _, err := svc.repo.GetEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	return svc.repo.QueryGradeRecordsByEvaluation(ctx, evaluationID)
}

// notifyPublished emails the students behind freshly published records.
// Failures are logged: publishing never fails because of a notification.
func (svc *Service) notifyPublished(ctx context.Context, ev Evaluation, records ...GradeRecord) {
	if !svc.notifyOnPublish || svc.mailSvc == nil || len(records) == 0 {
		return
	}

	rub, err := svc.repo.GetRubric(ctx, ev.RubricID)
	if err != nil {
		svc.logger.Warn("grade notification: rubric lookup failed", ev.ID, err)
		return
	}

	messages := make([]*core.EmailMessage, 0, len(records))
	for _, rec := range records {
		for _, carnet := range svc.subjectCarnets(ctx, rec.Subject) {
			st, err := svc.roster.GetStudent(ctx, rub.GroupID, carnet)
			if err != nil || st.Email == "" {
				continue
			}
			messages = append(messages, newGradePublishedMessage(st, rub, ev, rec))
		}
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
}

// subjectCarnets returns the students a Subject stands for.
func (svc *Service) subjectCarnets(ctx context.Context, subject Subject) []string {
	if carnet, ok := subject.Carnet(); ok {
		return []string{carnet}
	}
	wg, err := svc.repo.GetWorkGroup(ctx, subject.ID)
	if err != nil {
		svc.logger.Warn("grade notification: work group lookup failed", subject.ID, err)
		return nil
	}
	return wg.Members
}

// GradePublishedCategory tags the e-mails sent when a grade is published.
const GradePublishedCategory = "grade-published"

func newGradePublishedMessage(st Student, rub Rubric, ev Evaluation, rec GradeRecord) *core.EmailMessage {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", firstNonEmpty(st.Name, st.Carnet))
	fmt.Fprintf(&body, "Your grade for %q (%s) has been published: %s / %d.\n", ev.Name, rub.Name, rec.Points, ev.Weight)
	if rec.Observations != "" {
		fmt.Fprintf(&body, "\nObservations:\n%s\n", rec.Observations)
	}

	msg := &core.EmailMessage{
		To:         []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:    fmt.Sprintf("Grade published: %s", ev.Name),
		BodyStr:    body.String(),
		Categories: []string{GradePublishedCategory},
		Args: map[string]string{
			"group_id":      rub.GroupID,
			"evaluation_id": ev.ID,
			"subject":       rec.Subject.Key(),
		},
	}
	_ = msg.Render()
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
