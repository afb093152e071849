package grading

import (
	"context"
	"encoding/json"
)

// RowError is the failure of one row of a batch (rows are numbered from 1).
type RowError struct {
	Row int   `json:"row"`
	Err error `json:"-"`
}

func (re RowError) Error() string { return re.Err.Error() }

func (re RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	}{re.Row, re.Err.Error()})
}

// BatchReport summarizes a batch: each row is applied on its own, a failing row never aborts the batch.
type BatchReport struct {
	Succeeded int        `json:"succeeded"`
	Failed    []RowError `json:"failed"`
}

func (r *BatchReport) record(row int, err error) {
	if err != nil {
		r.Failed = append(r.Failed, RowError{Row: row, Err: err})
		return
	}
	r.Succeeded++
}

// runBatch applies `fn` to rows [0, n) in order. Once ctx is done, remaining rows fail with ctx's error.
func runBatch(ctx context.Context, n int, fn func(i int) error) BatchReport {
	report := BatchReport{Failed: []RowError{}}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			report.record(i+1, err)
			continue
		}
		report.record(i+1, fn(i))
	}
	return report
}

// BatchCreateEvaluations creates evaluations row by row, with the same checks as CreateEvaluation.
func (svc *Service) BatchCreateEvaluations(ctx context.Context, rows []NewEvaluation) BatchReport {
	report := runBatch(ctx, len(rows), func(i int) error {
		_, err := svc.CreateEvaluation(ctx, rows[i])
		return err
	})
	svc.logBatch("evaluations", len(rows), report)
	return report
}

// BatchSetGrades sets grades row by row, with the same checks as SetGrade.
func (svc *Service) BatchSetGrades(ctx context.Context, rows []NewGrade) BatchReport {
	report := runBatch(ctx, len(rows), func(i int) error {
		_, err := svc.setGrade(ctx, rows[i])
		return err
	})
	svc.logBatch("grades", len(rows), report)
	return report
}

func (svc *Service) logBatch(kind string, total int, report BatchReport) {
	if len(report.Failed) > 0 {
		svc.logger.Warn("batch "+kind+" completed with failures", total, report.Succeeded, len(report.Failed))
		return
	}
	svc.logger.Info("batch "+kind+" completed", total, report.Succeeded)
}
