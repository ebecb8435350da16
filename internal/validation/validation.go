// Package validation wraps go-playground/validator with JSON field names and
// user-facing messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule on one field. Field is the JSON path of the field,
// e.g. "productCategory.id" or "lineItems[0].quantity".
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Errors lists failed rules in struct field order.
type Errors []FieldError

// Error implements the error interface with the messages joined by "; ".
func (e Errors) Error() string {
	messages := make([]string, len(e))
	for i, fe := range e {
		messages[i] = fe.Message
	}
	return strings.Join(messages, "; ")
}

// First returns the first failure.
func (e Errors) First() FieldError {
	if len(e) == 0 {
		return FieldError{}
	}
	return e[0]
}

// Has reports whether field failed any rule.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Messages maps a field path or a "field.tag" pair to a user-facing message.
// Slice elements may be addressed without their index, e.g. "lineItems[].quantity".
type Messages map[string]string

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// Validator validates structs using their `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator that reports JSON field names.
func New() *Validator {
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
	return &Validator{validate: v}
}

// Engine returns the underlying validator, e.g. for registering it with gin.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Struct validates s. It returns nil or Errors. Messages are looked up by
// "field.tag", then by "field", then fall back to a generic message for the tag.
func (v *Validator) Struct(s any, messages Messages) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		out = append(out, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Message: messages.lookup(field, fe),
		})
	}
	return out
}

func (m Messages) lookup(field string, fe validator.FieldError) string {
	if msg, ok := m[field+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	if generic := indexPattern.ReplaceAllString(field, "[]"); generic != field {
		if msg, ok := m[generic+"."+fe.Tag()]; ok {
			return msg
		}
		if msg, ok := m[generic]; ok {
			return msg
		}
	}
	return field + ": " + DefaultMessage(fe)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// DefaultMessage returns a human-readable message for a failed rule.
func DefaultMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " item(s)"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}
