// Package validation holds the inbound payload schemas and the validator that enforces them.
//
// Each input kind is a struct whose validate tags form its field table: required, type,
// constraints and, through required_when, conditional dependencies on a sibling field.
// Defaults and normalization live in the Normalize method of each kind.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
)

// FieldError describes a single violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Normalizer is implemented by inputs that trim, default or reshape themselves before validation.
type Normalizer interface {
	Normalize()
}

var (
	validate = newValidator()

	moroccanPhone = regexp.MustCompile(`^(\+212|0)[5-7][0-9]{8}$`)
	hasLower      = regexp.MustCompile(`[a-z]`)
	hasUpper      = regexp.MustCompile(`[A-Z]`)
	hasDigit      = regexp.MustCompile(`[0-9]`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	mustRegister(v, "ma_phone", isMoroccanPhone, false)
	mustRegister(v, "strong_password", isStrongPassword, false)
	mustRegister(v, "required_when", requiredWhen, true)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func, callEvenIfNull bool) {
	if err := v.RegisterValidation(tag, fn, callEvenIfNull); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Validate normalizes in (when it implements Normalizer) and checks every rule.
// Failures come back as a VALIDATION_ERROR listing all violations.
func Validate(in any) error {
	if n, ok := in.(Normalizer); ok {
		n.Normalize()
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation(fieldErrors(verrs))
	}
	return apperr.Internal(err)
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		item := FieldError{Field: path, Message: message(path, fe)}
		if !strings.Contains(strings.ToLower(path), "password") {
			item.Value = fe.Value()
		}
		out = append(out, item)
	}
	return out
}

func message(path string, fe validator.FieldError) string {
	unit := "value"
	switch fe.Kind() {
	case reflect.String:
		unit = "characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "items"
	}

	switch fe.Tag() {
	case "required", "required_when":
		return fmt.Sprintf("%s is required", path)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", path)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", path)
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "ma_phone":
		return fmt.Sprintf("%s must be a valid Moroccan phone number (+212XXXXXXXXX or 0XXXXXXXXX)", path)
	case "strong_password":
		return fmt.Sprintf("%s must contain at least one lowercase letter, one uppercase letter and one number", path)
	case "min":
		if unit == "value" {
			return fmt.Sprintf("%s must be at least %s", path, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s %s", path, fe.Param(), unit)
	case "max":
		if unit == "value" {
			return fmt.Sprintf("%s must be at most %s", path, fe.Param())
		}
		return fmt.Sprintf("%s must contain at most %s %s", path, fe.Param(), unit)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", path, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", path, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", path)
}

func isMoroccanPhone(fl validator.FieldLevel) bool {
	return moroccanPhone.MatchString(fl.Field().String())
}

func isStrongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return hasLower.MatchString(s) && hasUpper.MatchString(s) && hasDigit.MatchString(s)
}

// requiredWhen implements `required_when=Sibling v1 v2`: the field must be set
// when the sibling field equals any of the listed values.
func requiredWhen(fl validator.FieldLevel) bool {
	params := strings.Fields(fl.Param())
	if len(params) < 2 {
		return true
	}
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return true
	}
	sibling := reflect.Indirect(parent.FieldByName(params[0]))
	if !sibling.IsValid() {
		return true
	}
	current := fmt.Sprint(sibling.Interface())
	triggered := false
	for _, want := range params[1:] {
		if current == want {
			triggered = true
			break
		}
	}
	if !triggered {
		return true
	}
	field := fl.Field()
	return field.IsValid() && !field.IsZero()
}
