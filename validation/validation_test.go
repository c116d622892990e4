package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mbolis/quick-form/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bound(f float64) *float64 { return &f }

func field(name string, typ model.FieldType) model.Field {
	return model.Field{Name: name, Label: name, Type: typ}
}

func insuranceFields() []model.Field {
	return []model.Field{{
		Name:  "insurance",
		Label: "Insurance",
		Type:  model.Radio,
		Options: []model.Option{
			{Value: "yes", Label: "Yes", NestedFields: []model.Field{
				{Name: "policyNumber", Label: "Policy number", Type: model.Text, Required: true},
			}},
			{Value: "no", Label: "No"},
		},
	}}
}

func TestRequiredShortCircuit(t *testing.T) {
	for _, typ := range model.FieldTypes {
		f := field("q", typ)
		f.Required = true
		f.Label = "Question"

		for name, answers := range map[string]model.AnswerMap{
			"missing": {},
			"null":    {"q": nil},
			"empty":   {"q": ""},
		} {
			t.Run(string(typ)+"/"+name, func(t *testing.T) {
				res := Validate([]model.Field{f}, answers)
				assert.False(t, res.Valid)
				assert.Equal(t, map[string]string{"q": "Question is required"}, res.Errors)
				assert.NotContains(t, res.Answers, "q")
			})
		}
	}
}

func TestOptionalEmptyIsSkipped(t *testing.T) {
	for _, typ := range model.FieldTypes {
		t.Run(string(typ), func(t *testing.T) {
			f := field("q", typ)
			f.Validation = &model.Rules{Min: bound(3), Regex: "^x$"}
			res := Validate([]model.Field{f}, model.AnswerMap{"q": ""})
			assert.True(t, res.Valid)
			assert.Empty(t, res.Errors)
			assert.NotContains(t, res.Answers, "q")
		})
	}
}

func TestTypeRules(t *testing.T) {
	number := field("n", model.Number)
	number.Label = "Age"
	number.Validation = &model.Rules{Min: bound(1), Max: bound(10)}

	custom := number
	custom.Validation = &model.Rules{Min: bound(1), Max: bound(10), Message: "Pick 1 to 10"}

	text := field("t", model.Text)
	text.Label = "Code"
	text.Validation = &model.Rules{Regex: `^[A-Z]+$`, Min: bound(2), Max: bound(4)}

	textMsg := text
	textMsg.Validation = &model.Rules{Regex: `^[A-Z]+$`, Message: "Upper case only"}

	badPattern := field("t", model.Textarea)
	badPattern.Label = "Notes"
	badPattern.Validation = &model.Rules{Regex: `(`}

	choice := field("c", model.Select)
	choice.Label = "Color"
	choice.Options = []model.Option{{Value: "red"}, {Value: "blue"}}

	email := field("e", model.Email)
	email.Label = "Email"

	date := field("d", model.Date)
	date.Label = "Birthday"

	tests := []struct {
		name  string
		field model.Field
		value any
		want  any
		err   string
	}{
		{"email ok", email, "a@b.com", "a@b.com", ""},
		{"email no at", email, "not-an-email", nil, "Email must be a valid email address"},
		{"email spaces", email, "a b@c.d", nil, "Email must be a valid email address"},
		{"email no-break space", email, "a\u00a0b@c.com", nil, "Email must be a valid email address"},
		{"email ideographic space", email, "a@b\u3000c.com", nil, "Email must be a valid email address"},
		{"email byte order mark", email, "a@b.co\ufeffm", nil, "Email must be a valid email address"},
		{"email vertical tab", email, "a\vb@c.com", nil, "Email must be a valid email address"},
		{"email unicode letters", email, "jos\u00e9@b\u00fccher.de", "jos\u00e9@b\u00fccher.de", ""},
		{"email no dot", email, "a@b", nil, "Email must be a valid email address"},

		{"number string", number, "5", 5.0, ""},
		{"number padded", number, " 7 ", 7.0, ""},
		{"number json", number, 10.0, 10.0, ""},
		{"number bool", number, true, 1.0, ""},
		{"number nan", number, "abc", nil, "Age must be a number"},
		{"number NaN literal", number, "NaN", nil, "Age must be a number"},
		{"number inf", number, "Inf", nil, "Age must be a number"},
		{"number array", number, []any{1.0}, nil, "Age must be a number"},
		{"number below", number, "0", nil, "Age must be at least 1"},
		{"number above", number, 10.5, nil, "Age must be at most 10"},
		{"number custom below", custom, "0", nil, "Pick 1 to 10"},
		{"number custom not numeric", custom, "x", nil, "Age must be a number"},

		{"date iso", date, "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ""},
		{"date rfc3339", date, "2024-01-15T10:30:00Z", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), ""},
		{"date millis", date, 0.0, time.Unix(0, 0).UTC(), ""},
		{"date garbage", date, "not a date", nil, "Birthday must be a valid date"},
		{"date bool", date, true, nil, "Birthday must be a valid date"},

		{"text ok", text, "ABC", "ABC", ""},
		{"text pattern first", text, "a", nil, "Code format is invalid"},
		{"text too short", text, "A", nil, "Code must be at least 2 characters"},
		{"text too long", text, "ABCDE", nil, "Code must be at most 4 characters"},
		{"text custom", textMsg, "abc", nil, "Upper case only"},
		{"text bad pattern fails closed", badPattern, "anything", nil, "Notes format is invalid"},
		{"text no rules", field("t", model.Text), "whatever", "whatever", ""},

		{"checkbox array", field("x", model.Checkbox), []any{"a", "b"}, []any{"a", "b"}, ""},
		{"checkbox true", field("x", model.Checkbox), true, true, ""},
		{"checkbox false", field("x", model.Checkbox), false, false, ""},
		{"checkbox zero", field("x", model.Checkbox), 0.0, false, ""},
		{"checkbox string", field("x", model.Checkbox), "on", true, ""},

		{"select ok", choice, "red", "red", ""},
		{"select stale", choice, "green", nil, "Color has an invalid selection"},
		{"select not string", choice, 1.0, nil, "Color has an invalid selection"},
		{"select without options", field("c", model.Radio), "anything", "anything", ""},

		{"unknown type", model.Field{Name: "u", Label: "Upload", Type: "file"}, "x", nil, "Upload has an unsupported type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate([]model.Field{tt.field}, model.AnswerMap{tt.field.Name: tt.value})
			if tt.err != "" {
				assert.False(t, res.Valid)
				assert.Equal(t, map[string]string{tt.field.Name: tt.err}, res.Errors)
				assert.NotContains(t, res.Answers, tt.field.Name)
				return
			}
			assert.True(t, res.Valid, "errors: %v", res.Errors)
			if want, ok := tt.want.(time.Time); ok {
				got, ok := res.Answers[tt.field.Name].(time.Time)
				require.True(t, ok)
				assert.True(t, want.Equal(got), "want %s, got %s", want, got)
				return
			}
			assert.Equal(t, tt.want, res.Answers[tt.field.Name])
		})
	}
}

func TestZeroBoundIsSet(t *testing.T) {
	f := field("n", model.Number)
	f.Validation = &model.Rules{Max: bound(0)}

	res := Validate([]model.Field{f}, model.AnswerMap{"n": "1"})
	assert.Equal(t, "n must be at most 0", res.Errors["n"])
}

func TestNestedFields(t *testing.T) {
	t.Run("selected option reveals nested field", func(t *testing.T) {
		res := Validate(insuranceFields(), model.AnswerMap{"insurance": "yes"})
		assert.False(t, res.Valid)
		assert.Equal(t, map[string]string{"insurance_policyNumber": "Policy number is required"}, res.Errors)
		assert.Equal(t, model.AnswerMap{"insurance": "yes"}, res.Answers)
	})

	t.Run("nested answer is normalized under namespaced key", func(t *testing.T) {
		res := Validate(insuranceFields(), model.AnswerMap{
			"insurance":              "yes",
			"insurance_policyNumber": "P-1",
		})
		assert.True(t, res.Valid)
		assert.Equal(t, model.AnswerMap{"insurance": "yes", "insurance_policyNumber": "P-1"}, res.Answers)
	})

	t.Run("other option leaves nested field unreachable", func(t *testing.T) {
		for _, answers := range []model.AnswerMap{
			{"insurance": "no"},
			{"insurance": "no", "insurance_policyNumber": ""},
			{"insurance": "no", "insurance_policyNumber": "P-1"},
		} {
			res := Validate(insuranceFields(), answers)
			assert.True(t, res.Valid)
			assert.NotContains(t, res.Errors, "insurance_policyNumber")
			assert.NotContains(t, res.Answers, "insurance_policyNumber")
		}
	})

	t.Run("stale selection skips nested fields", func(t *testing.T) {
		res := Validate(insuranceFields(), model.AnswerMap{"insurance": "maybe"})
		assert.Equal(t, map[string]string{"insurance": "Insurance has an invalid selection"}, res.Errors)
	})

	t.Run("empty optional parent skips nested fields", func(t *testing.T) {
		res := Validate(insuranceFields(), model.AnswerMap{})
		assert.True(t, res.Valid)
		assert.Empty(t, res.Answers)
	})
}

func TestDeepNesting(t *testing.T) {
	fields := []model.Field{{
		Name: "vehicle", Label: "Vehicle", Type: model.Select,
		Options: []model.Option{{Value: "car", NestedFields: []model.Field{{
			Name: "fuel", Label: "Fuel", Type: model.Radio, Required: true,
			Options: []model.Option{{Value: "electric", NestedFields: []model.Field{
				{Name: "range", Label: "Range", Type: model.Number, Required: true,
					Validation: &model.Rules{Min: bound(100)}},
			}}, {Value: "petrol"}},
		}}}},
	}}

	res := Validate(fields, model.AnswerMap{
		"vehicle":            "car",
		"vehicle_fuel":       "electric",
		"vehicle_fuel_range": "50",
	})
	assert.Equal(t, map[string]string{"vehicle_fuel_range": "Range must be at least 100"}, res.Errors)

	res = Validate(fields, model.AnswerMap{
		"vehicle":            "car",
		"vehicle_fuel":       "electric",
		"vehicle_fuel_range": "300",
	})
	assert.True(t, res.Valid)
	assert.Equal(t, 300.0, res.Answers["vehicle_fuel_range"])

	res = Validate(fields, model.AnswerMap{"vehicle": "car"})
	assert.Equal(t, map[string]string{"vehicle_fuel": "Fuel is required"}, res.Errors)
}

func TestSiblingsAlwaysVisited(t *testing.T) {
	fields := []model.Field{
		{Name: "email", Label: "Email", Type: model.Email, Required: true, Order: 0},
		{Name: "age", Label: "Age", Type: model.Number, Order: 1, Validation: &model.Rules{Min: bound(18)}},
	}

	res := Validate(fields, model.AnswerMap{"email": "not-an-email", "age": "15"})
	assert.False(t, res.Valid)
	assert.Equal(t, map[string]string{
		"email": "Email must be a valid email address",
		"age":   "Age must be at least 18",
	}, res.Errors)

	res = Validate(fields, model.AnswerMap{"email": "a@b.com"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, model.AnswerMap{"email": "a@b.com"}, res.Answers)
}

func TestIdempotent(t *testing.T) {
	fields := append(insuranceFields(),
		model.Field{Name: "when", Label: "When", Type: model.Date, Order: 1},
		model.Field{Name: "n", Label: "N", Type: model.Number, Order: 2},
	)
	answers := model.AnswerMap{"insurance": "yes", "when": "2024-03-01", "n": "x"}

	first, err := json.Marshal(Validate(fields, answers))
	require.NoError(t, err)
	second, err := json.Marshal(Validate(fields, answers))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, model.AnswerMap{"insurance": "yes", "when": "2024-03-01", "n": "x"}, answers, "input must not be modified")
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(Validate(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid":true,"errors":{},"normalizedAnswers":{}}`, string(data))
}

func TestSubmit(t *testing.T) {
	form := model.Form{Fields: insuranceFields(), IsActive: false}
	_, err := Submit(form, model.AnswerMap{"insurance": "maybe"})
	assert.ErrorIs(t, err, ErrFormInactive)

	form.IsActive = true
	res, err := Submit(form, model.AnswerMap{"insurance": "no"})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
