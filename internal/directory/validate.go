// ABOUTME: Input validation for submissions and admin patches
// ABOUTME: Reports missing required fields by name and rejects unknown enum values

package directory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError describes rejected input.
type ValidationError struct {
	// Missing lists required fields that were absent or empty, by JSON name.
	Missing []string
	// Reason describes any other problem.
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "required fields missing: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Tag used for required fields. Blank strings and empty lists count as missing.
const tagRequired = "nonblank"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, tagRequired, func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.String:
			return strings.TrimSpace(f.String()) != ""
		case reflect.Slice:
			return f.Len() > 0
		}
		return !f.IsZero()
	})
	mustRegister(v, "kategorie", func(fl validator.FieldLevel) bool {
		k := Kategorie(fl.Field().String())
		return k == "" || k.Valid()
	})
	mustRegister(v, "schwerpunkt", func(fl validator.FieldLevel) bool {
		return Schwerpunkt(fl.Field().String()).Valid()
	})
	mustRegister(v, "requeststatus", func(fl validator.FieldLevel) bool {
		return RequestStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "providerstatus", func(fl validator.FieldLevel) bool {
		return ProviderStatus(fl.Field().String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// check validates s against its struct tags. Missing fields are collected in
// declaration order; the first other failure becomes the reason.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Reason: err.Error()}
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		if fe.Tag() == tagRequired {
			verr.Missing = append(verr.Missing, fe.Field())
			continue
		}
		if verr.Reason == "" {
			verr.Reason = reason(fe)
		}
	}
	return verr
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "invalid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "kategorie":
		return fmt.Sprintf("invalid kategorie %q", fe.Value())
	case "schwerpunkt":
		return fmt.Sprintf("invalid schwerpunkt %q", fe.Value())
	case "requeststatus", "providerstatus":
		return fmt.Sprintf("invalid status %q", fe.Value())
	}
	return fmt.Sprintf("invalid %s", fe.Field())
}

// validateRequest checks a new OEM request submission.
func validateRequest(r OemRequest) error {
	return check(r)
}

// validateProvider checks a new provider profile submission.
func validateProvider(p ProviderProfile) error {
	return check(p)
}
