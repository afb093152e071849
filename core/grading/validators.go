package grading

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/notas/core"
)

var (
	groupSizeTag  = "groupsize"
	groupSizeText = "group evaluations require a group size of at least 1"

	subjectTag  = "subject"
	subjectText = "subject must have a kind (individual or workgroup) and a valid id"
)

// RegisterValidators registers the grading struct validations on `validate`.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(evaluationStructValidation, NewEvaluation{})
	validate.RegisterStructValidation(gradeStructValidation, NewGrade{})
	validate.RegisterStructValidation(submissionStructValidation, NewSubmission{})

	core.RegisterCustomTranslation(validate, translator, groupSizeTag, groupSizeText)
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)
}

// evaluationStructValidation checks that group evaluations carry a group size.
func evaluationStructValidation(sl validator.StructLevel) {
	if ne, ok := sl.Current().Interface().(NewEvaluation); ok {
		if ne.IsGroupEvaluation && ne.GroupSize < 1 {
			sl.ReportError(ne.GroupSize, "group_size", "GroupSize", groupSizeTag, "")
		}
	}
}

// gradeStructValidation checks that a grade targets a well-formed subject.
func gradeStructValidation(sl validator.StructLevel) {
	if ng, ok := sl.Current().Interface().(NewGrade); ok {
		if !validSubject(sl.Validator(), ng.Subject) {
			sl.ReportError(ng.Subject, "subject", "Subject", subjectTag, "")
		}
	}
}

// validSubject checks the subject shape and, for individual subjects, the carnet.
func validSubject(validate *validator.Validate, subject Subject) bool {
	if subject.Validate() != nil {
		return false
	}
	if carnet, ok := subject.Carnet(); ok {
		return validate.Var(carnet, "alphanum_") == nil
	}
	return true
}

// submissionStructValidation checks the optional subject of a submission.
func submissionStructValidation(sl validator.StructLevel) {
	if ns, ok := sl.Current().Interface().(NewSubmission); ok {
		if !ns.Subject.IsZero() && !validSubject(sl.Validator(), ns.Subject) {
			sl.ReportError(ns.Subject, "subject", "Subject", subjectTag, "")
		}
	}
}
