package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"inkwell/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator, reporting fields by their json names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return fl.Field().String() == "" || ValidateSlug(fl.Field().String()) == nil
		})
	})
	return validate
}

// Struct validates a request payload and converts the first failure into a field-scoped AppError.
func Struct(payload any) error {
	err := Validator().Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewFieldError(fe.Field(), messageFor(fe))
	}
	return models.NewValidationError(err.Error())
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	case "slug":
		return "Enter a valid slug consisting of lowercase letters, numbers, underscores or hyphens."
	case "eqfield":
		return fmt.Sprintf("Must match %s.", fe.Param())
	default:
		return fmt.Sprintf("Invalid value for %s.", fe.Field())
	}
}
