package httputil

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError is a single failed struct validation rule. Field is the json name.
type FieldError struct {
	Field string
	Tag   string
}

// ValidationErrors collects the failed rules of one struct.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + " failed on " + fe.Tag
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the `validate` tags of s.
func ValidateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, FieldError{Field: fe.Field(), Tag: fe.Tag()})
		}
		return failures
	}
	return err
}

// ValidationMessage maps the first failed field of err to a user-facing message.
// Fields missing from messages get fallback.
func ValidationMessage(err error, messages map[string]string, fallback string) string {
	var ve ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if msg, ok := messages[ve[0].Field]; ok {
			return msg
		}
	}
	return fallback
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
