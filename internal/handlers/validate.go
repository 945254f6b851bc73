package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hirehub/apiserver/types"
)

type enumValue interface {
	Valid() bool
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("enum", validateEnum)
	_ = v.RegisterValidation("country", validateCountry)
	return v
}

// validateEnum accepts values whose type reports them as a known member.
func validateEnum(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.CanInterface() {
		if enum, ok := field.Interface().(enumValue); ok {
			return enum.Valid()
		}
	}
	return false
}

func validateCountry(fl validator.FieldLevel) bool {
	_, err := types.NormalizeCountryCode(fl.Field().String())
	return err == nil
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("please enter %s", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s can not exceed %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "enum":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), field)
	case "country":
		return types.ErrInvalidCountryCode.Error()
	}
	return fmt.Sprintf("%s is invalid", field)
}
