package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"audioguide/model"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names, they are what clients send
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateGuide checks the guide and its tracks against the model's
// `validate` tags. It returns a *ValidationError listing every bad field,
// located as in a request body: ["body", "title"],
// ["body", "tracks", 1, "file_path"], ...
func ValidateGuide(guide model.Guide, tracks []model.Track) error {
	var fields []FieldError

	fields = append(fields, fieldErrors(validate.Struct(guide), "body")...)
	for i, t := range tracks {
		fields = append(fields, fieldErrors(validate.Struct(t), "body", "tracks", i)...)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldErrors(err error, loc ...any) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Loc: loc, Msg: err.Error(), Type: "value_error"}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		l := append(append([]any{}, loc...), fe.Field())
		msg, typ := describe(fe)
		fields = append(fields, FieldError{Loc: l, Msg: msg, Type: typ})
	}
	return fields
}

func describe(fe validator.FieldError) (msg, typ string) {
	switch fe.Tag() {
	case "required":
		return "Field required", "missing"
	case "max":
		return fmt.Sprintf("String should have at most %s characters", fe.Param()), "string_too_long"
	case "gte":
		return fmt.Sprintf("Input should be greater than or equal to %s", fe.Param()), "greater_than_equal"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag()), "value_error"
	}
}
