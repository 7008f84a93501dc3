// Package validation turns struct tags into per-field form errors so that
// invalid input is rejected before anything reaches the backend.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field's JSON name to a user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns nil when no error was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// As extracts field errors from err.
func As(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates s using its `validate` tags. Messages use the `label` tag.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	typ := reflect.TypeOf(s)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe, label(typ, fe.StructField())))
	}
	return out
}

func label(typ reflect.Type, field string) string {
	if typ.Kind() == reflect.Struct {
		if f, ok := typ.FieldByName(field); ok {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return field
}

func message(fe validator.FieldError, label string) string {
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email pattern"
	case "len", "numeric":
		return "Enter a valid " + strings.ToLower(label)
	case "eqfield":
		return "Passwords do not match"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
