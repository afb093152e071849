package echoapi

import "github.com/trezcool/notas/core/grading"

type (
	NewGroupResponse struct {
		Group   grading.Group    `json:"group"`
		Rubrics []grading.Rubric `json:"rubrics"`
	}

	JoinRequest struct {
		Carnet string `json:"carnet"`
	}

	SetGradeRequest struct {
		Subject      grading.Subject `json:"subject"`
		Points       grading.Points  `json:"points"`
		Observations string          `json:"observations"`
	}

	PublishRequest struct {
		Subject grading.Subject `json:"subject"`
	}

	PublishAllResponse struct {
		Published int `json:"published"`
	}

	ReportRequest struct {
		Carnets []string `json:"carnets"`
	}
)
