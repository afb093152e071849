package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphaNumUnderValidation(t *testing.T) {
	validate := NewValidator(NewTranslator())

	tests := []struct {
		value string
		valid bool
	}{
		{value: "S001", valid: true},
		{value: "2024_abc-01", valid: true},
		{value: "S 001"},
		{value: "S001\t"},
		{value: "S.001"},
		{value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := validate.Var(tt.value, alphaNumUnderTag)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
