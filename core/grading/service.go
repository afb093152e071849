package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/notas/core"
)

var NowFunc = time.Now // mockable

const defaultReportWorkers = 8

// Service is the evaluation weighting & grade consolidation engine.
// Every weight-changing operation validates the percentage budgets and commits in the same transaction.
type Service struct {
	repo     Repository
	roster   RosterProvider
	mailSvc  core.EmailService
	logger   core.Logger
	validate *validator.Validate

	notifyOnPublish bool
	reportWorkers   int
}

func NewService(
	repo Repository,
	roster RosterProvider,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	svc := &Service{
		repo:          repo,
		roster:        roster,
		mailSvc:       mailSvc,
		logger:        logger,
		validate:      validate,
		reportWorkers: defaultReportWorkers,
	}
	if svc.roster == nil {
		svc.roster = OpenRoster{}
	}
	if conf != nil {
		svc.notifyOnPublish = conf.Grading.NotifyOnPublish
		if conf.Grading.ReportWorkers > 0 {
			svc.reportWorkers = conf.Grading.ReportWorkers
		}
	}
	return svc
}

func now() time.Time { return NowFunc().UTC() }

// cleanSubject trims and validates a Subject given by a caller. Individual subjects must carry a valid carnet.
func (svc *Service) cleanSubject(subject Subject) (Subject, error) {
	subject = subject.clean()
	if err := subject.Validate(); err != nil {
		return Subject{}, err
	}
	if carnet, ok := subject.Carnet(); ok {
		if _, err := svc.cleanCarnet(carnet); err != nil {
			return Subject{}, err
		}
	}
	return subject, nil
}

func (svc *Service) cleanCarnet(carnet string) (string, error) {
	carnet = core.CleanString(carnet)
	if err := svc.validate.Var(carnet, "required,alphanum_"); err != nil {
		return "", core.NewValidationError(nil, core.FieldError{Field: "carnet", Error: "a valid carnet is required"})
	}
	return carnet, nil
}
