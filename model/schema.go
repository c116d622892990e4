package model

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
)

// SchemaError reports a malformed field definition. Path is the answer key
// of the offending field, or its position when the name is missing.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Path, e.Reason)
}

// CheckFields verifies a field list before it is stored: labels and names
// present, known types, answer keys unique, patterns compilable and bounds
// ordered. Nested lists are checked recursively.
func CheckFields(fields []Field) error {
	return checkFields(fields, "", map[string]bool{})
}

// checkFields records every answer key it accepts in keys. Options of one
// field are mutually exclusive, so their nested lists may reuse a key among
// themselves but not one claimed anywhere else.
func checkFields(fields []Field, parent string, keys map[string]bool) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		path := f.Name
		if parent != "" {
			path = NestedName(parent, f.Name)
		}
		if f.Name == "" {
			path = parent + "#" + strconv.Itoa(i)
			return &SchemaError{path, "name is required"}
		}
		if seen[f.Name] {
			return &SchemaError{path, "duplicate name"}
		}
		seen[f.Name] = true
		if keys[path] {
			return &SchemaError{path, "duplicate answer key"}
		}
		keys[path] = true

		if f.Label == "" {
			return &SchemaError{path, "label is required"}
		}
		if !f.Type.Valid() {
			return &SchemaError{path, fmt.Sprintf("unknown type %q", f.Type)}
		}

		if r := f.Validation; r != nil {
			if r.Regex != "" {
				if _, err := regexp.Compile(r.Regex); err != nil {
					return &SchemaError{path, "invalid regex: " + err.Error()}
				}
			}
			if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
				return &SchemaError{path, "min is greater than max"}
			}
		}

		base := maps.Clone(keys)
		for _, o := range f.Options {
			if len(o.NestedFields) == 0 {
				continue
			}
			if !f.Type.HasChoices() {
				return &SchemaError{path, fmt.Sprintf("nested fields are not supported on %s fields", f.Type)}
			}
			branch := maps.Clone(base)
			if err := checkFields(o.NestedFields, path, branch); err != nil {
				return err
			}
			maps.Copy(keys, branch)
		}
	}
	return nil
}

// Reorder returns a copy of fields positioned as listed in names, which must
// name every field exactly once.
func Reorder(fields []Field, names []string) ([]Field, error) {
	if len(names) != len(fields) {
		return nil, &SchemaError{"order", fmt.Sprintf("expected %d names, got %d", len(fields), len(names))}
	}

	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	reordered := make([]Field, 0, len(names))
	for i, name := range names {
		f, ok := byName[name]
		if !ok {
			return nil, &SchemaError{name, "unknown or repeated field"}
		}
		delete(byName, name)
		f.Order = i
		reordered = append(reordered, f)
	}
	return reordered, nil
}
