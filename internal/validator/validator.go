package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"campusflow/internal/model"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Custom validators
	_ = v.RegisterValidation("event_category", validateEventCategory)
	_ = v.RegisterValidation("event_status", validateEventStatus)
	_ = v.RegisterValidation("user_role", validateUserRole)

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// Describe turns a validation failure into one readable sentence.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, describeField(fe))
	}
	return strings.Join(messages, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "event_category":
		return fmt.Sprintf("%s must be one of %s", field, join(model.EventCategories))
	case "event_status":
		return fmt.Sprintf("%s must be one of %s", field, join(model.EventStatuses))
	case "user_role":
		return fmt.Sprintf("%s must be one of %s", field, join(model.UserRoles))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func validateEventCategory(fl validator.FieldLevel) bool {
	return model.EventCategory(fl.Field().String()).Valid()
}

func validateEventStatus(fl validator.FieldLevel) bool {
	return model.EventStatus(fl.Field().String()).Valid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return model.UserRole(fl.Field().String()).Valid()
}
