package middleware

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"ttnmanager/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom tags registered and
// JSON field names in errors.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("ua_name", validateUkrainianName)
		_ = validate.RegisterValidation("ua_phone", validateUkrainianPhone)

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

func validateUkrainianName(fl validator.FieldLevel) bool {
	return utils.IsUkrainianName(fl.Field().String())
}

func validateUkrainianPhone(fl validator.FieldLevel) bool {
	_, ok := utils.NormalizePhone(fl.Field().String())
	return ok
}

// ValidationMessage summarizes validator errors in one line.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	var missing, invalid []string
	for _, e := range verrs {
		if e.Tag() == "required" {
			missing = append(missing, e.Field())
			continue
		}
		invalid = append(invalid, formatValidationError(e))
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	parts = append(parts, invalid...)
	return strings.Join(parts, "; ")
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "ua_name":
		return fmt.Sprintf("%s must contain only Ukrainian letters", e.Field())
	case "ua_phone":
		return fmt.Sprintf("%s must be a valid Ukrainian phone number", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
