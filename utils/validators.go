package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"tracker/model"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password the credential gate accepts.
const MinPasswordLength = 6

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	RegisterCustomValidators(v)
	return v
}

func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterValidation("password", ValidatePasswordRule)
}

func ValidatePasswordRule(fl validator.FieldLevel) bool {
	return ValidatePassword(fl.Field().String())
}

func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// ValidateStruct runs the validate tags of s and converts the first failure
// into a *model.ValidationError.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	return model.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return fmt.Sprintf("must match the date format %s", fe.Param())
	case "password":
		return fmt.Sprintf("must be at least %d characters long", MinPasswordLength)
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
