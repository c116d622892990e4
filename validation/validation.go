// Package validation checks an answer map against a form's field schema.
//
// The same Validate call backs both the advisory check run while a form is
// being filled in and the authoritative check run before a submission is
// stored, so the two can never disagree.
package validation

import (
	"errors"

	"github.com/mbolis/quick-form/model"
)

var ErrFormInactive = errors.New("form is no longer accepting submissions")

type Result struct {
	Valid   bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
	Answers model.AnswerMap   `json:"normalizedAnswers"`
}

// Validate visits every field in order, descending into the nested fields of
// selected options, and collects one error per failing answer key. Answers
// holds the coerced values of the fields that passed and were not empty.
func Validate(fields []model.Field, answers model.AnswerMap) Result {
	v := validator{
		answers:    answers,
		errors:     map[string]string{},
		normalized: model.AnswerMap{},
	}
	for _, f := range model.SortFields(fields) {
		v.field(f, f.Name)
	}

	return Result{
		Valid:   len(v.errors) == 0,
		Errors:  v.errors,
		Answers: v.normalized,
	}
}

// Submit is Validate for a stored form: inactive forms are refused before any
// answer is looked at.
func Submit(form model.Form, answers model.AnswerMap) (Result, error) {
	if !form.IsActive {
		return Result{}, ErrFormInactive
	}
	return Validate(form.Fields, answers), nil
}

type validator struct {
	answers    model.AnswerMap
	errors     map[string]string
	normalized model.AnswerMap
}

func (v *validator) field(f model.Field, key string) {
	value := v.answers[key]
	if isEmpty(value) {
		if f.Required {
			v.errors[key] = f.Label + " is required"
		}
		return
	}

	normalized, msg := check(f, value)
	if msg != "" {
		v.errors[key] = msg
		return
	}
	v.normalized[key] = normalized

	if !f.Type.HasChoices() {
		return
	}
	s, _ := value.(string)
	opt, ok := f.Option(s)
	if !ok {
		return
	}
	for _, nested := range model.SortFields(opt.NestedFields) {
		v.field(nested, model.NestedName(key, nested.Name))
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}
