package schemacatalog

import "fmt"

// ValidateJSON validates doc (already unmarshalled into a Go value, e.g.
// map[string]any) against the named schema. A nil/empty slice means the
// document is valid.
func (c *Catalog) ValidateJSON(name string, doc any) ([]ValidationError, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("schemacatalog: unknown schema %q", name)
	}
	if err := e.resolved.Validate(doc); err != nil {
		return flattenValidationErrors(err), nil
	}
	return nil, nil
}

// flattenValidationErrors walks a validation error tree into a flat list.
// google/jsonschema-go joins per-keyword failures with the standard
// multi-error Unwrap() []error convention; we recurse through that rather
// than depend on its unexported error struct shape.
func flattenValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		causes := u.Unwrap()
		if len(causes) > 0 {
			var out []ValidationError
			for _, c := range causes {
				out = append(out, flattenValidationErrors(c)...)
			}
			return out
		}
	}
	return []ValidationError{{Message: err.Error()}}
}
