package utils

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidateStruct validates s and returns a validation *AppError listing every failed field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return InvalidRequest("invalid request: %v", err)
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var msg string
		switch fe.Tag() {
		case "required":
			msg = field + " is required"
		case "min":
			msg = field + " must be at least " + param + " characters"
		case "max":
			msg = field + " must be at most " + param + " characters"
		case "email":
			msg = field + " must be a valid email"
		case "oneof":
			msg = field + " must be one of: " + strings.ReplaceAll(param, " ", ", ")
		case "hexcolor":
			msg = field + " must be a HEX color such as #1A2B3C"
		case "url":
			msg = field + " must be a valid URL"
		case "isodate":
			msg = field + " must be an ISO 8601 date"
		case "datetime":
			msg = field + " must match the format " + param
		case "gt":
			msg = field + " must be greater than " + param
		default:
			msg = field + " is invalid"
		}
		details = append(details, FieldError{Field: field, Message: msg})
	}
	return Invalid(details...)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate parses an ISO 8601 date (YYYY-MM-DD) or date-time (RFC 3339).
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseOptionalDate parses s when it is non-empty. Nil means "no date".
func ParseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
