package export

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/quick-form/model"
)

type Column struct {
	Key    string
	Header string
}

// Columns lists one column per answer key a submission can hold: every field
// in order, each followed by the nested fields of its options.
func Columns(fields []model.Field) []Column {
	var cols []Column
	seen := map[string]bool{}
	var walk func(fields []model.Field, parentKey, parentHeader string)
	walk = func(fields []model.Field, parentKey, parentHeader string) {
		for _, f := range model.SortFields(fields) {
			key, header := f.Name, f.Label
			if parentKey != "" {
				key = model.NestedName(parentKey, f.Name)
				header = parentHeader + ": " + f.Label
			}
			if !seen[key] {
				seen[key] = true
				cols = append(cols, Column{key, header})
			}
			for _, o := range f.Options {
				walk(o.NestedFields, key, header)
			}
		}
	}
	walk(fields, "", "")
	return cols
}

// WriteCSV writes a header row and one row per submission.
func WriteCSV(w io.Writer, fields []model.Field, submissions []model.Submission) error {
	cols := Columns(fields)
	out := csv.NewWriter(w)

	header := []string{"Submission ID", "Submitted At", "IP Address"}
	for _, c := range cols {
		header = append(header, c.Header)
	}
	if err := out.Write(header); err != nil {
		return err
	}

	for _, s := range submissions {
		ip := s.IP
		if ip == "" {
			ip = "N/A"
		}
		row := []string{
			strconv.FormatInt(s.ID, 10),
			s.Time.UTC().Format(time.RFC3339),
			ip,
		}
		for _, c := range cols {
			cell, err := formatValue(s.Answers[c.Key])
			if err != nil {
				return err
			}
			row = append(row, cell)
		}
		if err := out.Write(row); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}

func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	}
	data, err := json.Marshal(v)
	return string(data), err
}

var reSpaces = regexp.MustCompile(`\s+`)

func Filename(title string) string {
	return reSpaces.ReplaceAllString(title, "_") + "_submissions.csv"
}
