package inmemdb

import (
	"context"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/notas/core/grading"
)

// table is a set of flags naming the maps of tables.
type table uint8

const (
	orderTable table = 1 << iota
	groupsTable
	rubricsTable
	evaluationsTable
	workGroupsTable
	submissionsTable
	gradesTable

	allTables = orderTable | groupsTable | rubricsTable | evaluationsTable | workGroupsTable | submissionsTable | gradesTable
)

// tables holds the grading data. Its methods do no locking: callers own the DB lock.
type tables struct {
	seq    int64
	shared table            // maps still shared with the committed tables
	order  map[string]int64 // insertion order of every row, by ID

	groups      map[string]grading.Group
	rubrics     map[string]grading.Rubric
	evaluations map[string]grading.Evaluation
	workGroups  map[string]grading.WorkGroup
	submissions map[string]grading.Submission  // by subjectKey
	grades      map[string]grading.GradeRecord // by subjectKey
}

var _ grading.Reader = (*tables)(nil) // interface compliance check
var _ grading.Writer = (*tables)(nil) // interface compliance check

func newTables() *tables {
	return &tables{
		order:       make(map[string]int64),
		groups:      make(map[string]grading.Group),
		rubrics:     make(map[string]grading.Rubric),
		evaluations: make(map[string]grading.Evaluation),
		workGroups:  make(map[string]grading.WorkGroup),
		submissions: make(map[string]grading.Submission),
		grades:      make(map[string]grading.GradeRecord),
	}
}

// snapshot returns a copy-on-write view of the tables: every map stays shared with `t`
// until the first write to it, so a transaction only copies the tables it modifies.
func (t *tables) snapshot() *tables {
	cp := *t
	cp.shared = allTables
	return &cp
}

// writable copies the shared maps among `which` before they get modified.
// Rows are values (work group members are never changed in place), so shallow copies suffice.
func (t *tables) writable(which table) {
	which &= t.shared
	if which == 0 {
		return
	}
	t.shared &^= which

	if which&orderTable != 0 {
		t.order = maps.Clone(t.order)
	}
	if which&groupsTable != 0 {
		t.groups = maps.Clone(t.groups)
	}
	if which&rubricsTable != 0 {
		t.rubrics = maps.Clone(t.rubrics)
	}
	if which&evaluationsTable != 0 {
		t.evaluations = maps.Clone(t.evaluations)
	}
	if which&workGroupsTable != 0 {
		t.workGroups = maps.Clone(t.workGroups)
	}
	if which&submissionsTable != 0 {
		t.submissions = maps.Clone(t.submissions)
	}
	if which&gradesTable != 0 {
		t.grades = maps.Clone(t.grades)
	}
}

func (t *tables) newID() string {
	id := uuid.NewString()
	t.writable(orderTable)
	t.seq++
	t.order[id] = t.seq
	return id
}

func (t *tables) sortByAge(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return t.order[ids[i]] < t.order[ids[j]] })
}

func subjectKey(evaluationID string, subject grading.Subject) string {
	return evaluationID + "|" + subject.Key()
}

func copyWorkGroup(wg grading.WorkGroup) grading.WorkGroup {
	members := make([]string, len(wg.Members))
	copy(members, wg.Members)
	wg.Members = members
	return wg
}

// groups

func (t *tables) GetGroup(_ context.Context, id string) (grading.Group, error) {
	if grp, ok := t.groups[id]; ok {
		return grp, nil
	}
	return grading.Group{}, grading.ErrGroupNotFound
}

func (t *tables) FindGroup(_ context.Context, course, semester string, number int) (grading.Group, error) {
	for _, grp := range t.groups {
		if strings.EqualFold(grp.Course, course) && strings.EqualFold(grp.Semester, semester) && grp.Number == number {
			return grp, nil
		}
	}
	return grading.Group{}, grading.ErrGroupNotFound
}

func (t *tables) QueryGroups(_ context.Context) ([]grading.Group, error) {
	ids := make([]string, 0, len(t.groups))
	for id := range t.groups {
		ids = append(ids, id)
	}
	t.sortByAge(ids)

	groups := make([]grading.Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, t.groups[id])
	}
	return groups, nil
}

func (t *tables) CreateGroup(_ context.Context, grp grading.Group) (grading.Group, error) {
	grp.ID = t.newID()
	t.writable(groupsTable)
	t.groups[grp.ID] = grp
	return grp, nil
}

func (t *tables) DeleteGroup(ctx context.Context, id string) error {
	if _, ok := t.groups[id]; !ok {
		return grading.ErrGroupNotFound
	}
	for rid, rub := range t.rubrics {
		if rub.GroupID == id {
			if err := t.DeleteRubric(ctx, rid); err != nil {
				return err
			}
		}
	}
	t.writable(groupsTable | orderTable)
	delete(t.groups, id)
	delete(t.order, id)
	return nil
}

// rubrics

func (t *tables) GetRubric(_ context.Context, id string) (grading.Rubric, error) {
	if rub, ok := t.rubrics[id]; ok {
		return rub, nil
	}
	return grading.Rubric{}, grading.ErrRubricNotFound
}

func (t *tables) QueryRubricsByGroup(_ context.Context, groupID string) ([]grading.Rubric, error) {
	ids := make([]string, 0)
	for id, rub := range t.rubrics {
		if rub.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	t.sortByAge(ids)

	rubrics := make([]grading.Rubric, 0, len(ids))
	for _, id := range ids {
		rubrics = append(rubrics, t.rubrics[id])
	}
	return rubrics, nil
}

func (t *tables) SumRubricWeights(_ context.Context, groupID, excludeID string) (int, error) {
	var sum int
	for id, rub := range t.rubrics {
		if rub.GroupID == groupID && id != excludeID {
			sum += rub.Weight
		}
	}
	return sum, nil
}

func (t *tables) CreateRubric(_ context.Context, rub grading.Rubric) (grading.Rubric, error) {
	if _, ok := t.groups[rub.GroupID]; !ok {
		return grading.Rubric{}, grading.ErrGroupNotFound
	}
	rub.ID = t.newID()
	t.writable(rubricsTable)
	t.rubrics[rub.ID] = rub
	return rub, nil
}

func (t *tables) UpdateRubric(_ context.Context, rub grading.Rubric) (grading.Rubric, error) {
	orig, ok := t.rubrics[rub.ID]
	if !ok {
		return grading.Rubric{}, grading.ErrRubricNotFound
	}
	orig.Name = rub.Name
	orig.Weight = rub.Weight
	orig.UpdatedAt = rub.UpdatedAt
	t.writable(rubricsTable)
	t.rubrics[rub.ID] = orig
	return orig, nil
}

func (t *tables) DeleteRubric(ctx context.Context, id string) error {
	if _, ok := t.rubrics[id]; !ok {
		return grading.ErrRubricNotFound
	}
	for eid, ev := range t.evaluations {
		if ev.RubricID == id {
			if err := t.DeleteEvaluation(ctx, eid); err != nil {
				return err
			}
		}
	}
	t.writable(rubricsTable | orderTable)
	delete(t.rubrics, id)
	delete(t.order, id)
	return nil
}

// evaluations

func (t *tables) GetEvaluation(_ context.Context, id string) (grading.Evaluation, error) {
	if ev, ok := t.evaluations[id]; ok {
		return ev, nil
	}
	return grading.Evaluation{}, grading.ErrEvaluationNotFound
}

func (t *tables) QueryEvaluationsByRubric(_ context.Context, rubricID string) ([]grading.Evaluation, error) {
	ids := make([]string, 0)
	for id, ev := range t.evaluations {
		if ev.RubricID == rubricID {
			ids = append(ids, id)
		}
	}
	t.sortByAge(ids)

	evals := make([]grading.Evaluation, 0, len(ids))
	for _, id := range ids {
		evals = append(evals, t.evaluations[id])
	}
	return evals, nil
}

func (t *tables) SumEvaluationWeights(_ context.Context, rubricID, excludeID string) (int, error) {
	var sum int
	for id, ev := range t.evaluations {
		if ev.RubricID == rubricID && id != excludeID {
			sum += ev.Weight
		}
	}
	return sum, nil
}

func (t *tables) CreateEvaluation(_ context.Context, ev grading.Evaluation) (grading.Evaluation, error) {
	if _, ok := t.rubrics[ev.RubricID]; !ok {
		return grading.Evaluation{}, grading.ErrRubricNotFound
	}
	ev.ID = t.newID()
	t.writable(evaluationsTable)
	t.evaluations[ev.ID] = ev
	return ev, nil
}

func (t *tables) UpdateEvaluation(_ context.Context, ev grading.Evaluation) (grading.Evaluation, error) {
	orig, ok := t.evaluations[ev.ID]
	if !ok {
		return grading.Evaluation{}, grading.ErrEvaluationNotFound
	}
	// RubricID, IsGroupEvaluation & CreatedAt are immutable
	orig.Name = ev.Name
	orig.DueDateTime = ev.DueDateTime
	orig.Weight = ev.Weight
	orig.GroupSize = ev.GroupSize
	orig.RequiresDeliverable = ev.RequiresDeliverable
	orig.UpdatedAt = ev.UpdatedAt
	t.writable(evaluationsTable)
	t.evaluations[ev.ID] = orig
	return orig, nil
}

func (t *tables) DeleteEvaluation(_ context.Context, id string) error {
	if _, ok := t.evaluations[id]; !ok {
		return grading.ErrEvaluationNotFound
	}
	t.writable(evaluationsTable | workGroupsTable | submissionsTable | gradesTable | orderTable)
	for wid, wg := range t.workGroups {
		if wg.EvaluationID == id {
			delete(t.workGroups, wid)
			delete(t.order, wid)
		}
	}
	for key, sub := range t.submissions {
		if sub.EvaluationID == id {
			delete(t.submissions, key)
			delete(t.order, sub.ID)
		}
	}
	for key, rec := range t.grades {
		if rec.EvaluationID == id {
			delete(t.grades, key)
			delete(t.order, rec.ID)
		}
	}
	delete(t.evaluations, id)
	delete(t.order, id)
	return nil
}

// work groups

func (t *tables) GetWorkGroup(_ context.Context, id string) (grading.WorkGroup, error) {
	if wg, ok := t.workGroups[id]; ok {
		return copyWorkGroup(wg), nil
	}
	return grading.WorkGroup{}, grading.ErrWorkGroupNotFound
}

func (t *tables) FindWorkGroupByMember(_ context.Context, evaluationID, carnet string) (grading.WorkGroup, error) {
	for _, wg := range t.workGroups {
		if wg.EvaluationID == evaluationID && wg.HasMember(carnet) {
			return copyWorkGroup(wg), nil
		}
	}
	return grading.WorkGroup{}, grading.ErrWorkGroupNotFound
}

func (t *tables) QueryWorkGroupsByEvaluation(_ context.Context, evaluationID string) ([]grading.WorkGroup, error) {
	ids := make([]string, 0)
	for id, wg := range t.workGroups {
		if wg.EvaluationID == evaluationID {
			ids = append(ids, id)
		}
	}
	t.sortByAge(ids)

	wgs := make([]grading.WorkGroup, 0, len(ids))
	for _, id := range ids {
		wgs = append(wgs, copyWorkGroup(t.workGroups[id]))
	}
	return wgs, nil
}

func (t *tables) CreateWorkGroup(_ context.Context, wg grading.WorkGroup) (grading.WorkGroup, error) {
	if _, ok := t.evaluations[wg.EvaluationID]; !ok {
		return grading.WorkGroup{}, grading.ErrEvaluationNotFound
	}
	wg = copyWorkGroup(wg)
	wg.ID = t.newID()
	t.writable(workGroupsTable)
	t.workGroups[wg.ID] = wg
	return copyWorkGroup(wg), nil
}

func (t *tables) AddWorkGroupMember(_ context.Context, workGroupID, carnet string) error {
	wg, ok := t.workGroups[workGroupID]
	if !ok {
		return grading.ErrWorkGroupNotFound
	}
	if wg.HasMember(carnet) {
		return nil
	}
	wg = copyWorkGroup(wg)
	wg.Members = append(wg.Members, carnet)
	t.writable(workGroupsTable)
	t.workGroups[workGroupID] = wg
	return nil
}

func (t *tables) RemoveWorkGroupMember(_ context.Context, workGroupID, carnet string) error {
	wg, ok := t.workGroups[workGroupID]
	if !ok {
		return grading.ErrWorkGroupNotFound
	}
	members := make([]string, 0, len(wg.Members))
	for _, m := range wg.Members {
		if m != carnet {
			members = append(members, m)
		}
	}
	wg.Members = members
	t.writable(workGroupsTable)
	t.workGroups[workGroupID] = wg
	return nil
}

// submissions

func (t *tables) GetSubmission(_ context.Context, evaluationID string, subject grading.Subject) (grading.Submission, error) {
	if sub, ok := t.submissions[subjectKey(evaluationID, subject)]; ok {
		return sub, nil
	}
	return grading.Submission{}, grading.ErrSubmissionNotFound
}

func (t *tables) QuerySubmissionsByEvaluation(_ context.Context, evaluationID string) ([]grading.Submission, error) {
	subs := make([]grading.Submission, 0)
	for _, sub := range t.submissions {
		if sub.EvaluationID == evaluationID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return t.order[subs[i].ID] < t.order[subs[j].ID] })
	return subs, nil
}

func (t *tables) UpsertSubmission(_ context.Context, sub grading.Submission) (grading.Submission, error) {
	if _, ok := t.evaluations[sub.EvaluationID]; !ok {
		return grading.Submission{}, grading.ErrEvaluationNotFound
	}
	key := subjectKey(sub.EvaluationID, sub.Subject)
	if orig, ok := t.submissions[key]; ok {
		sub.ID = orig.ID
	} else {
		sub.ID = t.newID()
	}
	t.writable(submissionsTable)
	t.submissions[key] = sub
	return sub, nil
}

// grade records

func (t *tables) GetGradeRecord(_ context.Context, evaluationID string, subject grading.Subject) (grading.GradeRecord, error) {
	if rec, ok := t.grades[subjectKey(evaluationID, subject)]; ok {
		return rec, nil
	}
	return grading.GradeRecord{}, grading.ErrGradeNotFound
}

func (t *tables) QueryGradeRecordsByEvaluation(_ context.Context, evaluationID string) ([]grading.GradeRecord, error) {
	records := make([]grading.GradeRecord, 0)
	for _, rec := range t.grades {
		if rec.EvaluationID == evaluationID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return t.order[records[i].ID] < t.order[records[j].ID] })
	return records, nil
}

func (t *tables) UpsertGradeRecord(_ context.Context, rec grading.GradeRecord) (grading.GradeRecord, error) {
	if _, ok := t.evaluations[rec.EvaluationID]; !ok {
		return grading.GradeRecord{}, grading.ErrEvaluationNotFound
	}
	key := subjectKey(rec.EvaluationID, rec.Subject)
	if orig, ok := t.grades[key]; ok {
		rec.ID = orig.ID
	} else {
		rec.ID = t.newID()
	}
	t.writable(gradesTable)
	t.grades[key] = rec
	return rec, nil
}

func (t *tables) PublishGradeRecord(
	_ context.Context,
	evaluationID string,
	subject grading.Subject,
	at time.Time,
) (grading.GradeRecord, error) {
	key := subjectKey(evaluationID, subject)
	rec, ok := t.grades[key]
	if !ok {
		return grading.GradeRecord{}, grading.ErrGradeNotFound
	}
	if !rec.Published {
		rec.Published = true
		rec.PublishedAt = at
		t.writable(gradesTable)
		t.grades[key] = rec
	}
	return rec, nil
}
