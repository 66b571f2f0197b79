package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

const tagOptionRange = "option_range"

var (
	validateOnce sync.Once
	validate     *validator.Validate
	trans        ut.Translator
)

// ValidationError lists field problems keyed by JSON path (e.g. "part1[0].options").
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func setupValidator() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(multipleChoiceStructLevel, MultipleChoiceQuestion{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	_ = validate.RegisterTranslation(tagOptionRange, trans,
		func(ut ut.Translator) error {
			return ut.Add(tagOptionRange, "{0} must index one of the options", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tagOptionRange, fe.Field())
			return t
		},
	)
}

func multipleChoiceStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(MultipleChoiceQuestion)
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		sl.ReportError(q.CorrectOption, "correctOption", "CorrectOption", tagOptionRange, "")
	}
}

// ValidateExam checks the structural contract of an authored exam:
// four options per choice question with an in-range key, four statements
// per true/false group, unique ids within each part and non-negative weights.
func ValidateExam(e Exam) error {
	return validateStruct(e)
}

// ValidateSubmission checks a student submission payload.
func ValidateSubmission(s Submission) error {
	return validateStruct(s)
}

// ValidateScoreOverride checks a manual score override.
func ValidateScoreOverride(o ScoreOverride) error {
	return validateStruct(o)
}

// ValidateLogin checks a teacher login payload.
func ValidateLogin(l TeacherLogin) error {
	return validateStruct(l)
}

func validateStruct(v any) error {
	validateOnce.Do(setupValidator)
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe.Namespace())] = fe.Translate(trans)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
