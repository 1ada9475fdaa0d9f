package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is the global validator instance
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	// report fields by their json names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = Validate.RegisterValidation("notblank", validateNotBlank)
	_ = Validate.RegisterValidation("moderation_status", validateModerationStatus)
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateModerationStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "approved", "flagged", "blocked":
		return true
	}
	return false
}
