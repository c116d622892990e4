package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

type FieldType string

const (
	Text     FieldType = "text"
	Textarea FieldType = "textarea"
	Number   FieldType = "number"
	Email    FieldType = "email"
	Date     FieldType = "date"
	Checkbox FieldType = "checkbox"
	Radio    FieldType = "radio"
	Select   FieldType = "select"
)

var FieldTypes = []FieldType{Text, Textarea, Number, Email, Date, Checkbox, Radio, Select}

var ErrUnknownFieldType = errors.New("unknown field type")

func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// HasChoices reports whether an answer must pick one of the field options.
func (t FieldType) HasChoices() bool {
	return t == Radio || t == Select
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ft := FieldType(s)
	if !ft.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
	}
	*t = ft
	return nil
}

type Form struct {
	ID          int64     `json:"id,omitempty"`
	Version     int       `json:"version,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Fields      []Field   `json:"fields,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Field struct {
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	Options    []Option  `json:"options,omitempty"`
	Validation *Rules    `json:"validation,omitempty"`
	Order      int       `json:"order"`
}

type Option struct {
	Value        string  `json:"value"`
	Label        string  `json:"label"`
	NestedFields []Field `json:"nestedFields,omitempty"`
}

// Rules constrain an answer. Min and Max bound the value of number fields
// and the length of text fields; nil means unbounded.
type Rules struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Regex   string   `json:"regex,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Failure returns the custom message if one is configured, fallback otherwise.
func (r *Rules) Failure(fallback string) string {
	if r != nil && r.Message != "" {
		return r.Message
	}
	return fallback
}

// Option returns the option whose value is v.
func (f Field) Option(v string) (Option, bool) {
	for _, o := range f.Options {
		if o.Value == v {
			return o, true
		}
	}
	return Option{}, false
}

// SortFields returns a copy of fields ordered by Order, keeping the
// original sequence for equal positions.
func SortFields(fields []Field) []Field {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

func (f Form) SortedFields() []Field {
	return SortFields(f.Fields)
}

// NestedName is the answer key of a field nested under the field keyed parent.
func NestedName(parent, child string) string {
	return parent + "_" + child
}

type AnswerMap map[string]any

type Submission struct {
	ID          int64     `json:"id"`
	FormID      int64     `json:"formId"`
	FormVersion int       `json:"formVersion"`
	Answers     AnswerMap `json:"answers"`
	IP          string    `json:"ipAddress"`
	UserAgent   string    `json:"userAgent"`
	Time        time.Time `json:"createdAt"`
}
