package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/services/email"
	"github.com/trezcool/notas/services/logger"
	"github.com/trezcool/notas/storage/database"
	"github.com/trezcool/notas/storage/database/inmem"
)

// Due is a due date shared by test evaluations.
var Due = time.Date(2030, time.June, 1, 23, 59, 0, 0, time.UTC)

func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "notas",
		DefaultFromEmail: mail.Address{Name: "notas", Address: "notas@test.test"},
		Grading: core.GradingConfig{
			NotifyOnPublish: true,
			ReportWorkers:   4,
		},
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	core.InitValidators(validate, translator)
	grading.RegisterValidators(validate, translator)
	return validate, translator
}

// Env is a grading Service over a fresh database.
type Env struct {
	Svc    *grading.Service
	Repo   grading.Repository
	Roster *grading.StaticRoster
	Mail   *emailsvc.ConsoleServiceMock
}

// NewEnv returns an Env over the in-memory store.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	return NewEnvWithRepo(t, inmemdb.NewGradingRepository(inmemdb.Open()))
}

func NewEnvWithRepo(t testing.TB, repo grading.Repository) *Env {
	t.Helper()

	conf := NewConfig()
	logger := logsvc.NewDiscardLogger()
	validate, _ := NewValidator()
	roster := grading.NewStaticRoster()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	return &Env{
		Svc:    grading.NewService(repo, roster, mailSvc, logger, validate, conf),
		Repo:   repo,
		Roster: roster,
		Mail:   mailSvc,
	}
}

// NewSQLiteDB opens a migrated, private in-memory SQLite database, closed with the test.
func NewSQLiteDB(t testing.TB) *sqlx.DB {
	t.Helper()

	conf := NewConfig()
	conf.Database = core.DatabaseConfig{Engine: core.EngineSQLite, Path: ":memory:"}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func CreateGroup(t testing.TB, svc *grading.Service, course string, number int) (grading.Group, map[string]grading.Rubric) {
	t.Helper()

	grp, rubrics, err := svc.CreateGroup(context.Background(), grading.NewGroup{
		Course:   course,
		Semester: "2030-1",
		Number:   number,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}

	byName := make(map[string]grading.Rubric, len(rubrics))
	for _, rub := range rubrics {
		byName[rub.Name] = rub
	}
	return grp, byName
}

func SetRubricWeight(t testing.TB, svc *grading.Service, rub grading.Rubric, weight int) grading.Rubric {
	t.Helper()

	rub, err := svc.UpdateRubric(context.Background(), rub.ID, grading.UpdateRubric{Name: rub.Name, Weight: weight})
	if err != nil {
		t.Fatalf("UpdateRubric() failed: %v", err)
	}
	return rub
}

func CreateEvaluation(
	t testing.TB,
	svc *grading.Service,
	rubricID, name string,
	weight int,
	groupSize int, // 0 for individual evaluations
) grading.Evaluation {
	t.Helper()

	ev, err := svc.CreateEvaluation(context.Background(), grading.NewEvaluation{
		RubricID:            rubricID,
		Name:                name,
		DueDateTime:         Due,
		Weight:              weight,
		IsGroupEvaluation:   groupSize > 0,
		GroupSize:           groupSize,
		RequiresDeliverable: true,
	})
	if err != nil {
		t.Fatalf("CreateEvaluation() failed: %v", err)
	}
	return ev
}

// Grade sets and publishes a grade.
func Grade(t testing.TB, svc *grading.Service, evaluationID string, subject grading.Subject, points string) grading.GradeRecord {
	t.Helper()

	pts, err := grading.ParsePoints(points)
	if err != nil {
		t.Fatalf("ParsePoints() failed: %v", err)
	}
	ctx := context.Background()
	if _, err = svc.SetGrade(ctx, evaluationID, subject, pts, ""); err != nil {
		t.Fatalf("SetGrade() failed: %v", err)
	}
	rec, err := svc.Publish(ctx, evaluationID, subject)
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	return rec
}
