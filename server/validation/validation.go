package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/go-playground/validator"
)

var (
	pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()

	// report json field names rather than Go ones
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := RegisterValidators(v); err != nil {
		panic(err)
	}

	return v
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
}

// Struct validates s and converts the first failure into a
// ValidationError. Fields may carry a `message` tag that overrides the
// generated text.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return apperrors.Wrap(apperrors.Internal, err, apperrors.GenericFailureMessage)
	}

	return apperrors.New(apperrors.ValidationError, message(s, fieldErrs[0]))
}

func message(s interface{}, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if field, ok := t.FieldByName(fe.StructField()); ok {
		if msg := field.Tag.Get("message"); msg != "" {
			return msg
		}
	}

	switch fe.Tag() {
	case "not_blank", "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "pin":
		return fmt.Sprintf("%s must be 4 digits.", fe.Field())
	default:
		return fmt.Sprintf("%s failed '%s' validation.", fe.Field(), fe.Tag())
	}
}
