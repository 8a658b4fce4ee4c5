package validator_test

import (
	"testing"

	"campusflow/internal/validator"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name     string   `json:"name" validate:"required,max=5"`
	Category string   `json:"category" validate:"omitempty,event_category"`
	Role     string   `json:"role" validate:"omitempty,user_role"`
	Years    []int    `json:"years" validate:"dive,min=1"`
	Tags     []string `json:"-" validate:"max=1"`
}

func TestValidator_Validate(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		input   sample
		isValid bool
		message string
	}{
		{name: "valid", input: sample{Name: "ok", Category: "technical", Role: "admin", Years: []int{1}}, isValid: true},
		{name: "missing_name", input: sample{}, message: "name is required"},
		{name: "long_name", input: sample{Name: "toolong"}, message: "name must be at most 5"},
		{name: "bad_category", input: sample{Name: "ok", Category: "party"}, message: "category must be one of technical, cultural, sports, placement, workshop, other"},
		{name: "bad_role", input: sample{Name: "ok", Role: "root"}, message: "role must be one of student, admin, super-admin"},
		{name: "bad_year", input: sample{Name: "ok", Years: []int{0}}, message: "years[0] must be at least 1"},
		{name: "multiple", input: sample{Name: "toolong", Category: "party"}, message: "name must be at most 5; category must be one of technical, cultural, sports, placement, workshop, other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.isValid {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.message, validator.Describe(err))
		})
	}
}

func TestDescribe_ForeignError(t *testing.T) {
	assert.Equal(t, "invalid request", validator.Describe(assert.AnError))
}
