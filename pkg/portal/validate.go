package portal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared form validator. Field names in errors use the
// json tag so they match the API's field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Messages maps "field.tag" (e.g. "email.email") to the text shown to the user.
// A "field" key without a tag matches any failed tag on that field.
type Messages map[string]string

// ValidateForm validates form with the shared validator and converts failures
// into a *ValidationError using msgs.
func ValidateForm(form interface{}, msgs Messages) error {
	err := Validator().Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := ve.Fields[field]; seen {
			continue
		}
		msg, ok := msgs[field+"."+fe.Tag()]
		if !ok {
			msg, ok = msgs[field]
		}
		if !ok {
			msg = fmt.Sprintf("failed %q check", fe.Tag())
		}
		ve.Fields[field] = msg
	}
	return ve
}
