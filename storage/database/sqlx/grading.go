package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
)

type gradingRepository struct {
	queries
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check
var _ grading.Tx = (*gradingTx)(nil)                 // interface compliance check

func NewGradingRepository(db *sqlx.DB) *gradingRepository {
	return &gradingRepository{queries: queries{ext: db}, db: db}
}

func (repo *gradingRepository) RunInTx(ctx context.Context, fn func(tx grading.Tx) error) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	gtx := &gradingTx{queries: queries{ext: tx, forUpdate: core.IsPostgres(repo.db.DriverName())}}
	if err = fn(gtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type gradingTx struct {
	queries
}

func (tx *gradingTx) LockGroup(ctx context.Context, id string) (grading.Group, error) {
	return tx.getGroup(ctx, id, true)
}

func (tx *gradingTx) LockRubric(ctx context.Context, id string) (grading.Rubric, error) {
	return tx.getRubric(ctx, id, true)
}

func (tx *gradingTx) LockEvaluation(ctx context.Context, id string) (grading.Evaluation, error) {
	return tx.getEvaluation(ctx, id, true)
}

func (tx *gradingTx) LockWorkGroup(ctx context.Context, id string) (grading.WorkGroup, error) {
	return tx.getWorkGroup(ctx, id, true)
}

// queries implements grading.Reader and grading.Writer over a DB or a Tx.
// Queries use `?` placeholders, rebound for the driver.
type queries struct {
	ext       sqlx.ExtContext
	forUpdate bool // row locks are only needed (and supported) on PostgreSQL
}

func (q queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.ext.Rebind(query), args...)
}

func (q queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.ext.ExecContext(ctx, q.ext.Rebind(query), args...)
}

// execOne runs a statement that must affect a row, returning notFound otherwise.
func (q queries) execOne(ctx context.Context, notFound error, query string, args ...interface{}) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (q queries) lockClause(lock bool) string {
	if lock && q.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func notFoundOr(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

func newID() string { return uuid.NewString() }

// groups

func (q queries) getGroup(ctx context.Context, id string, lock bool) (grading.Group, error) {
	var row groupRow
	err := q.get(ctx, &row, "SELECT "+groupColumns+" FROM course_groups WHERE id = ?"+q.lockClause(lock), id)
	if err != nil {
		return grading.Group{}, notFoundOr(err, grading.ErrGroupNotFound)
	}
	return row.toModel(), nil
}

func (q queries) GetGroup(ctx context.Context, id string) (grading.Group, error) {
	return q.getGroup(ctx, id, false)
}

func (q queries) FindGroup(ctx context.Context, course, semester string, number int) (grading.Group, error) {
	var row groupRow
	err := q.get(ctx, &row,
		"SELECT "+groupColumns+" FROM course_groups WHERE LOWER(course) = LOWER(?) AND LOWER(semester) = LOWER(?) AND number = ?",
		course, semester, number)
	if err != nil {
		return grading.Group{}, notFoundOr(err, grading.ErrGroupNotFound)
	}
	return row.toModel(), nil
}

func (q queries) QueryGroups(ctx context.Context) ([]grading.Group, error) {
	var rows []groupRow
	if err := q.selectAll(ctx, &rows, "SELECT "+groupColumns+" FROM course_groups ORDER BY created_at, id"); err != nil {
		return nil, err
	}
	groups := make([]grading.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toModel())
	}
	return groups, nil
}

func (q queries) CreateGroup(ctx context.Context, grp grading.Group) (grading.Group, error) {
	grp.ID = newID()
	_, err := q.exec(ctx,
		"INSERT INTO course_groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?)",
		grp.ID, grp.Course, grp.Semester, grp.Number, toMillis(grp.CreatedAt))
	if err != nil {
		return grading.Group{}, err
	}
	return q.GetGroup(ctx, grp.ID)
}

func (q queries) DeleteGroup(ctx context.Context, id string) error {
	if _, err := q.GetGroup(ctx, id); err != nil {
		return err
	}
	err := q.deleteEvaluations(ctx,
		"SELECT e.id FROM evaluations e JOIN rubrics r ON r.id = e.rubric_id WHERE r.group_id = ?", id)
	if err != nil {
		return err
	}
	if _, err = q.exec(ctx, "DELETE FROM rubrics WHERE group_id = ?", id); err != nil {
		return err
	}
	return q.execOne(ctx, grading.ErrGroupNotFound, "DELETE FROM course_groups WHERE id = ?", id)
}

// rubrics

func (q queries) getRubric(ctx context.Context, id string, lock bool) (grading.Rubric, error) {
	var row rubricRow
	err := q.get(ctx, &row, "SELECT "+rubricColumns+" FROM rubrics WHERE id = ?"+q.lockClause(lock), id)
	if err != nil {
		return grading.Rubric{}, notFoundOr(err, grading.ErrRubricNotFound)
	}
	return row.toModel(), nil
}

func (q queries) GetRubric(ctx context.Context, id string) (grading.Rubric, error) {
	return q.getRubric(ctx, id, false)
}

func (q queries) QueryRubricsByGroup(ctx context.Context, groupID string) ([]grading.Rubric, error) {
	var rows []rubricRow
	err := q.selectAll(ctx, &rows,
		"SELECT "+rubricColumns+" FROM rubrics WHERE group_id = ? ORDER BY created_at, name", groupID)
	if err != nil {
		return nil, err
	}
	rubrics := make([]grading.Rubric, 0, len(rows))
	for _, row := range rows {
		rubrics = append(rubrics, row.toModel())
	}
	return rubrics, nil
}

func (q queries) SumRubricWeights(ctx context.Context, groupID, excludeID string) (int, error) {
	var sum int
	err := q.get(ctx, &sum, "SELECT COALESCE(SUM(weight), 0) FROM rubrics WHERE group_id = ? AND id <> ?", groupID, excludeID)
	return sum, err
}

func (q queries) CreateRubric(ctx context.Context, rub grading.Rubric) (grading.Rubric, error) {
	if _, err := q.GetGroup(ctx, rub.GroupID); err != nil {
		return grading.Rubric{}, err
	}
	rub.ID = newID()
	_, err := q.exec(ctx,
		"INSERT INTO rubrics ("+rubricColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		rub.ID, rub.GroupID, rub.Name, rub.Weight, toMillis(rub.CreatedAt), toMillis(rub.UpdatedAt))
	if err != nil {
		return grading.Rubric{}, err
	}
	return q.GetRubric(ctx, rub.ID)
}

func (q queries) UpdateRubric(ctx context.Context, rub grading.Rubric) (grading.Rubric, error) {
	err := q.execOne(ctx, grading.ErrRubricNotFound,
		"UPDATE rubrics SET name = ?, weight = ?, updated_at = ? WHERE id = ?",
		rub.Name, rub.Weight, toMillis(rub.UpdatedAt), rub.ID)
	if err != nil {
		return grading.Rubric{}, err
	}
	return q.GetRubric(ctx, rub.ID)
}

func (q queries) DeleteRubric(ctx context.Context, id string) error {
	if _, err := q.GetRubric(ctx, id); err != nil {
		return err
	}
	if err := q.deleteEvaluations(ctx, "SELECT id FROM evaluations WHERE rubric_id = ?", id); err != nil {
		return err
	}
	return q.execOne(ctx, grading.ErrRubricNotFound, "DELETE FROM rubrics WHERE id = ?", id)
}

// evaluations

func (q queries) getEvaluation(ctx context.Context, id string, lock bool) (grading.Evaluation, error) {
	var row evaluationRow
	err := q.get(ctx, &row, "SELECT "+evaluationColumns+" FROM evaluations WHERE id = ?"+q.lockClause(lock), id)
	if err != nil {
		return grading.Evaluation{}, notFoundOr(err, grading.ErrEvaluationNotFound)
	}
	return row.toModel(), nil
}

func (q queries) GetEvaluation(ctx context.Context, id string) (grading.Evaluation, error) {
	return q.getEvaluation(ctx, id, false)
}

func (q queries) QueryEvaluationsByRubric(ctx context.Context, rubricID string) ([]grading.Evaluation, error) {
	var rows []evaluationRow
	err := q.selectAll(ctx, &rows,
		"SELECT "+evaluationColumns+" FROM evaluations WHERE rubric_id = ? ORDER BY created_at, name", rubricID)
	if err != nil {
		return nil, err
	}
	evals := make([]grading.Evaluation, 0, len(rows))
	for _, row := range rows {
		evals = append(evals, row.toModel())
	}
	return evals, nil
}

func (q queries) SumEvaluationWeights(ctx context.Context, rubricID, excludeID string) (int, error) {
	var sum int
	err := q.get(ctx, &sum,
		"SELECT COALESCE(SUM(weight), 0) FROM evaluations WHERE rubric_id = ? AND id <> ?", rubricID, excludeID)
	return sum, err
}

func (q queries) CreateEvaluation(ctx context.Context, ev grading.Evaluation) (grading.Evaluation, error) {
	if _, err := q.GetRubric(ctx, ev.RubricID); err != nil {
		return grading.Evaluation{}, err
	}
	ev.ID = newID()
	_, err := q.exec(ctx,
		"INSERT INTO evaluations ("+evaluationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		ev.ID, ev.RubricID, ev.Name, toMillis(ev.DueDateTime), ev.Weight, ev.IsGroupEvaluation, ev.GroupSize,
		ev.RequiresDeliverable, toMillis(ev.CreatedAt), toMillis(ev.UpdatedAt))
	if err != nil {
		return grading.Evaluation{}, err
	}
	return q.GetEvaluation(ctx, ev.ID)
}

func (q queries) UpdateEvaluation(ctx context.Context, ev grading.Evaluation) (grading.Evaluation, error) {
	// rubric_id, is_group_evaluation & created_at are immutable
	err := q.execOne(ctx, grading.ErrEvaluationNotFound,
		"UPDATE evaluations SET name = ?, due_date_time = ?, weight = ?, group_size = ?, requires_deliverable = ?, "+
			"updated_at = ? WHERE id = ?",
		ev.Name, toMillis(ev.DueDateTime), ev.Weight, ev.GroupSize, ev.RequiresDeliverable, toMillis(ev.UpdatedAt), ev.ID)
	if err != nil {
		return grading.Evaluation{}, err
	}
	return q.GetEvaluation(ctx, ev.ID)
}

func (q queries) DeleteEvaluation(ctx context.Context, id string) error {
	if _, err := q.GetEvaluation(ctx, id); err != nil {
		return err
	}
	return q.deleteEvaluations(ctx, "?", id)
}

// deleteEvaluations deletes the evaluations selected by `filter` (a subquery taking `arg`) with everything they own.
func (q queries) deleteEvaluations(ctx context.Context, filter string, arg interface{}) error {
	for _, table := range []string{"grade_records", "submissions", "work_group_members", "work_groups"} {
		if _, err := q.exec(ctx, "DELETE FROM "+table+" WHERE evaluation_id IN ("+filter+")", arg); err != nil {
			return errors.Wrapf(err, "deleting %s", table)
		}
	}
	_, err := q.exec(ctx, "DELETE FROM evaluations WHERE id IN ("+filter+")", arg)
	return errors.Wrap(err, "deleting evaluations")
}

// work groups

func (q queries) members(ctx context.Context, workGroupID string) ([]string, error) {
	members := make([]string, 0)
	err := q.selectAll(ctx, &members,
		"SELECT carnet FROM work_group_members WHERE work_group_id = ? ORDER BY position", workGroupID)
	return members, err
}

func (q queries) getWorkGroup(ctx context.Context, id string, lock bool) (grading.WorkGroup, error) {
	var row workGroupRow
	err := q.get(ctx, &row, "SELECT "+workGroupColumns+" FROM work_groups WHERE id = ?"+q.lockClause(lock), id)
	if err != nil {
		return grading.WorkGroup{}, notFoundOr(err, grading.ErrWorkGroupNotFound)
	}
	members, err := q.members(ctx, id)
	if err != nil {
		return grading.WorkGroup{}, err
	}
	return row.toModel(members), nil
}

func (q queries) GetWorkGroup(ctx context.Context, id string) (grading.WorkGroup, error) {
	return q.getWorkGroup(ctx, id, false)
}

func (q queries) FindWorkGroupByMember(ctx context.Context, evaluationID, carnet string) (grading.WorkGroup, error) {
	var id string
	err := q.get(ctx, &id,
		"SELECT work_group_id FROM work_group_members WHERE evaluation_id = ? AND carnet = ?", evaluationID, carnet)
	if err != nil {
		return grading.WorkGroup{}, notFoundOr(err, grading.ErrWorkGroupNotFound)
	}
	return q.GetWorkGroup(ctx, id)
}

func (q queries) QueryWorkGroupsByEvaluation(ctx context.Context, evaluationID string) ([]grading.WorkGroup, error) {
	var rows []workGroupRow
	err := q.selectAll(ctx, &rows,
		"SELECT "+workGroupColumns+" FROM work_groups WHERE evaluation_id = ? ORDER BY created_at, name", evaluationID)
	if err != nil {
		return nil, err
	}

	var memberRows []memberRow
	err = q.selectAll(ctx, &memberRows,
		"SELECT work_group_id, carnet FROM work_group_members WHERE evaluation_id = ? ORDER BY position", evaluationID)
	if err != nil {
		return nil, err
	}
	members := make(map[string][]string)
	for _, m := range memberRows {
		members[m.WorkGroupID] = append(members[m.WorkGroupID], m.Carnet)
	}

	wgs := make([]grading.WorkGroup, 0, len(rows))
	for _, row := range rows {
		wgs = append(wgs, row.toModel(members[row.ID]))
	}
	return wgs, nil
}

func (q queries) CreateWorkGroup(ctx context.Context, wg grading.WorkGroup) (grading.WorkGroup, error) {
	if _, err := q.GetEvaluation(ctx, wg.EvaluationID); err != nil {
		return grading.WorkGroup{}, err
	}
	wg.ID = newID()
	_, err := q.exec(ctx,
		"INSERT INTO work_groups ("+workGroupColumns+") VALUES (?, ?, ?, ?)",
		wg.ID, wg.EvaluationID, wg.Name, toMillis(wg.CreatedAt))
	if err != nil {
		return grading.WorkGroup{}, err
	}
	for i, carnet := range wg.Members {
		_, err = q.exec(ctx,
			"INSERT INTO work_group_members (work_group_id, evaluation_id, carnet, position) VALUES (?, ?, ?, ?)",
			wg.ID, wg.EvaluationID, carnet, i+1)
		if err != nil {
			return grading.WorkGroup{}, errors.Wrapf(err, "adding member %s", carnet)
		}
	}
	return q.GetWorkGroup(ctx, wg.ID)
}

func (q queries) AddWorkGroupMember(ctx context.Context, workGroupID, carnet string) error {
	wg, err := q.GetWorkGroup(ctx, workGroupID)
	if err != nil {
		return err
	}
	if wg.HasMember(carnet) {
		return nil
	}
	var last int
	err = q.get(ctx, &last,
		"SELECT COALESCE(MAX(position), 0) FROM work_group_members WHERE work_group_id = ?", workGroupID)
	if err != nil {
		return err
	}
	_, err = q.exec(ctx,
		"INSERT INTO work_group_members (work_group_id, evaluation_id, carnet, position) VALUES (?, ?, ?, ?)",
		workGroupID, wg.EvaluationID, carnet, last+1)
	return err
}

func (q queries) RemoveWorkGroupMember(ctx context.Context, workGroupID, carnet string) error {
	if _, err := q.GetWorkGroup(ctx, workGroupID); err != nil {
		return err
	}
	_, err := q.exec(ctx, "DELETE FROM work_group_members WHERE work_group_id = ? AND carnet = ?", workGroupID, carnet)
	return err
}

// submissions

func (q queries) GetSubmission(ctx context.Context, evaluationID string, subject grading.Subject) (grading.Submission, error) {
	var row submissionRow
	err := q.get(ctx, &row,
		"SELECT "+submissionColumns+" FROM submissions WHERE evaluation_id = ? AND subject_kind = ? AND subject_id = ?",
		evaluationID, string(subject.Kind), subject.ID)
	if err != nil {
		return grading.Submission{}, notFoundOr(err, grading.ErrSubmissionNotFound)
	}
	return row.toModel(), nil
}

func (q queries) QuerySubmissionsByEvaluation(ctx context.Context, evaluationID string) ([]grading.Submission, error) {
	var rows []submissionRow
	err := q.selectAll(ctx, &rows,
		"SELECT "+submissionColumns+" FROM submissions WHERE evaluation_id = ? ORDER BY submitted_at, id", evaluationID)
	if err != nil {
		return nil, err
	}
	subs := make([]grading.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}

func (q queries) UpsertSubmission(ctx context.Context, sub grading.Submission) (grading.Submission, error) {
	if _, err := q.GetEvaluation(ctx, sub.EvaluationID); err != nil {
		return grading.Submission{}, err
	}
	_, err := q.exec(ctx,
		"INSERT INTO submissions ("+submissionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (evaluation_id, subject_kind, subject_id) DO UPDATE SET "+
			"submitted_by = excluded.submitted_by, deliverable_ref = excluded.deliverable_ref, "+
			"submitted_at = excluded.submitted_at",
		newID(), sub.EvaluationID, string(sub.Subject.Kind), sub.Subject.ID, sub.SubmittedBy, sub.DeliverableRef,
		toMillis(sub.SubmittedAt))
	if err != nil {
		return grading.Submission{}, err
	}
	return q.GetSubmission(ctx, sub.EvaluationID, sub.Subject)
}

// grade records

func (q queries) GetGradeRecord(ctx context.Context, evaluationID string, subject grading.Subject) (grading.GradeRecord, error) {
	var row gradeRow
	err := q.get(ctx, &row,
		"SELECT "+gradeColumns+" FROM grade_records WHERE evaluation_id = ? AND subject_kind = ? AND subject_id = ?",
		evaluationID, string(subject.Kind), subject.ID)
	if err != nil {
		return grading.GradeRecord{}, notFoundOr(err, grading.ErrGradeNotFound)
	}
	return row.toModel(), nil
}

func (q queries) QueryGradeRecordsByEvaluation(ctx context.Context, evaluationID string) ([]grading.GradeRecord, error) {
	var rows []gradeRow
	err := q.selectAll(ctx, &rows,
		"SELECT "+gradeColumns+" FROM grade_records WHERE evaluation_id = ? ORDER BY subject_kind, subject_id", evaluationID)
	if err != nil {
		return nil, err
	}
	records := make([]grading.GradeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	return records, nil
}

func (q queries) UpsertGradeRecord(ctx context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	if _, err := q.GetEvaluation(ctx, rec.EvaluationID); err != nil {
		return grading.GradeRecord{}, err
	}
	_, err := q.exec(ctx,
		"INSERT INTO grade_records ("+gradeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (evaluation_id, subject_kind, subject_id) DO UPDATE SET "+
			"points = excluded.points, observations = excluded.observations, published = excluded.published, "+
			"published_at = excluded.published_at, updated_at = excluded.updated_at",
		newID(), rec.EvaluationID, string(rec.Subject.Kind), rec.Subject.ID, int64(rec.Points),
		null.NewString(rec.Observations, rec.Observations != ""), rec.Published, toNullMillis(rec.PublishedAt),
		toMillis(rec.UpdatedAt))
	if err != nil {
		return grading.GradeRecord{}, err
	}
	return q.GetGradeRecord(ctx, rec.EvaluationID, rec.Subject)
}

func (q queries) PublishGradeRecord(
	ctx context.Context,
	evaluationID string,
	subject grading.Subject,
	at time.Time,
) (grading.GradeRecord, error) {
	_, err := q.exec(ctx,
		"UPDATE grade_records SET published = ?, published_at = ? "+
			"WHERE evaluation_id = ? AND subject_kind = ? AND subject_id = ? AND published = ?",
		true, toMillis(at), evaluationID, string(subject.Kind), subject.ID, false)
	if err != nil {
		return grading.GradeRecord{}, err
	}
	return q.GetGradeRecord(ctx, evaluationID, subject)
}
