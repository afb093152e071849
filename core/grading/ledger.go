package grading

import (
	"github.com/trezcool/notas/core"
)

// CheckAndReserve guards a weight write against the parent's budget.
// `existing` is the sum of the parent's other children: all of them on create,
// all but the one being updated on update. It persists nothing; callers must run it
// inside the transaction that holds the parent lock and then commit their write.
func CheckAndReserve(parent ParentRef, existing, newWeight, budget int) error {
	if newWeight < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "weight", Error: "weight cannot be negative"})
	}
	if existing+newWeight > budget {
		return &BudgetExceededError{
			Parent:    parent,
			Current:   existing,
			Attempted: newWeight,
			Budget:    budget,
		}
	}
	return nil
}
