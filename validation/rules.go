package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/mbolis/quick-form/model"
)

// Whitespace here is the ECMAScript set: ASCII spaces, vertical tab, Unicode
// separators and the byte order mark.
var reEmail = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// check runs the type rule of f against a non-empty value. It returns the
// normalized value, or the first failure message.
func check(f model.Field, value any) (any, string) {
	switch f.Type {
	case model.Email:
		if !reEmail.MatchString(stringOf(value)) {
			return nil, f.Label + " must be a valid email address"
		}
		return value, ""

	case model.Number:
		return checkNumber(f, value)

	case model.Date:
		t, ok := toDate(value)
		if !ok {
			return nil, f.Label + " must be a valid date"
		}
		return t, ""

	case model.Text, model.Textarea:
		return checkText(f, value)

	case model.Checkbox:
		switch v := value.(type) {
		case []any, []string:
			return v, ""
		}
		return truthy(value), ""

	case model.Radio, model.Select:
		if len(f.Options) == 0 {
			return value, ""
		}
		s, ok := value.(string)
		if !ok {
			return nil, f.Label + " has an invalid selection"
		}
		if _, found := f.Option(s); !found {
			return nil, f.Label + " has an invalid selection"
		}
		return value, ""
	}

	return nil, f.Label + " has an unsupported type"
}

func checkNumber(f model.Field, value any) (any, string) {
	n, ok := toNumber(value)
	if !ok {
		return nil, f.Label + " must be a number"
	}

	if r := f.Validation; r != nil {
		if r.Min != nil && n < *r.Min {
			return nil, r.Failure(f.Label + " must be at least " + formatNumber(*r.Min))
		}
		if r.Max != nil && n > *r.Max {
			return nil, r.Failure(f.Label + " must be at most " + formatNumber(*r.Max))
		}
	}
	return n, ""
}

func checkText(f model.Field, value any) (any, string) {
	r := f.Validation
	if r == nil {
		return value, ""
	}
	s := stringOf(value)

	if r.Regex != "" {
		re, err := regexp.Compile(r.Regex)
		if err != nil || !re.MatchString(s) {
			return nil, r.Failure(f.Label + " format is invalid")
		}
	}

	n := float64(utf8.RuneCountInString(s))
	if r.Min != nil && n < *r.Min {
		return nil, r.Failure(f.Label + " must be at least " + formatNumber(*r.Min) + " characters")
	}
	if r.Max != nil && n > *r.Max {
		return nil, r.Failure(f.Label + " must be at most " + formatNumber(*r.Max) + " characters")
	}
	return value, ""
}

func toNumber(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	case bool:
		if v {
			n = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// toDate accepts time values, date strings in any layout dateparse knows
// (read as UTC when no zone is given) and epoch milliseconds.
func toDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := dateparse.ParseIn(strings.TrimSpace(v), time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return time.Time{}, false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case string:
		return v != ""
	}
	return true
}

func stringOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	}
	return fmt.Sprint(value)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
