package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Permission resource validation (closed enumeration)
	validate.RegisterValidation("resource", func(fl validator.FieldLevel) bool {
		resource := strings.ToLower(fl.Field().String())
		validResources := []string{
			"dashboard", "analytics", "students", "staff", "classes", "subjects",
			"timetables", "calendar", "admissions", "sessions", "events",
			"grades", "curriculum", "resources", "transfers", "integrations",
		}
		for _, r := range validResources {
			if resource == r {
				return true
			}
		}
		return false
	})

	// Permission access type validation
	validate.RegisterValidation("access_type", func(fl validator.FieldLevel) bool {
		accessType := strings.ToLower(fl.Field().String())
		validTypes := []string{"read", "write", "admin"}
		for _, t := range validTypes {
			if accessType == t {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "resource":
			errors[field] = "Unknown permission resource"
		case "access_type":
			errors[field] = "Invalid access type. Must be: read, write, or admin"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
