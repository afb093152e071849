package inmemdb

import (
	"context"

	"github.com/trezcool/notas/core/grading"
)

type gradingRepository struct {
	db *DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{db: db}
}

// RunInTx runs fn on a snapshot of the tables while holding the write lock.
// The snapshot replaces the tables if fn succeeds and is dropped otherwise.
func (repo *gradingRepository) RunInTx(ctx context.Context, fn func(tx grading.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	snapshot := repo.db.tables.snapshot()
	if err := fn(&gradingTx{tables: snapshot}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.tables = snapshot
	return nil
}

func (repo *gradingRepository) GetGroup(ctx context.Context, id string) (grading.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetGroup(ctx, id)
}

func (repo *gradingRepository) FindGroup(ctx context.Context, course, semester string, number int) (grading.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.FindGroup(ctx, course, semester, number)
}

func (repo *gradingRepository) QueryGroups(ctx context.Context) ([]grading.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QueryGroups(ctx)
}

func (repo *gradingRepository) GetRubric(ctx context.Context, id string) (grading.Rubric, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetRubric(ctx, id)
}

func (repo *gradingRepository) QueryRubricsByGroup(ctx context.Context, groupID string) ([]grading.Rubric, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QueryRubricsByGroup(ctx, groupID)
}

func (repo *gradingRepository) SumRubricWeights(ctx context.Context, groupID, excludeID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.SumRubricWeights(ctx, groupID, excludeID)
}

func (repo *gradingRepository) GetEvaluation(ctx context.Context, id string) (grading.Evaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetEvaluation(ctx, id)
}

func (repo *gradingRepository) QueryEvaluationsByRubric(ctx context.Context, rubricID string) ([]grading.Evaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QueryEvaluationsByRubric(ctx, rubricID)
}

func (repo *gradingRepository) SumEvaluationWeights(ctx context.Context, rubricID, excludeID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.SumEvaluationWeights(ctx, rubricID, excludeID)
}

func (repo *gradingRepository) GetWorkGroup(ctx context.Context, id string) (grading.WorkGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetWorkGroup(ctx, id)
}

func (repo *gradingRepository) FindWorkGroupByMember(ctx context.Context, evaluationID, carnet string) (grading.WorkGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.FindWorkGroupByMember(ctx, evaluationID, carnet)
}

func (repo *gradingRepository) QueryWorkGroupsByEvaluation(ctx context.Context, evaluationID string) ([]grading.WorkGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QueryWorkGroupsByEvaluation(ctx, evaluationID)
}

func (repo *gradingRepository) GetSubmission(ctx context.Context, evaluationID string, subject grading.Subject) (grading.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetSubmission(ctx, evaluationID, subject)
}

func (repo *gradingRepository) QuerySubmissionsByEvaluation(ctx context.Context, evaluationID string) ([]grading.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QuerySubmissionsByEvaluation(ctx, evaluationID)
}

func (repo *gradingRepository) GetGradeRecord(ctx context.Context, evaluationID string, subject grading.Subject) (grading.GradeRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.GetGradeRecord(ctx, evaluationID, subject)
}

func (repo *gradingRepository) QueryGradeRecordsByEvaluation(ctx context.Context, evaluationID string) ([]grading.GradeRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.tables.QueryGradeRecordsByEvaluation(ctx, evaluationID)
}

// gradingTx is a transaction over a snapshot. The write lock is held by RunInTx,
// so locking a row amounts to checking it exists.
type gradingTx struct {
	*tables
}

var _ grading.Tx = (*gradingTx)(nil) // interface compliance check

func (tx *gradingTx) LockGroup(ctx context.Context, id string) (grading.Group, error) {
	return tx.GetGroup(ctx, id)
}

func (tx *gradingTx) LockRubric(ctx context.Context, id string) (grading.Rubric, error) {
	return tx.GetRubric(ctx, id)
}

func (tx *gradingTx) LockEvaluation(ctx context.Context, id string) (grading.Evaluation, error) {
	return tx.GetEvaluation(ctx, id)
}

func (tx *gradingTx) LockWorkGroup(ctx context.Context, id string) (grading.WorkGroup, error) {
	return tx.GetWorkGroup(ctx, id)
}
