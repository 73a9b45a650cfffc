// Package querystate binds list filter fields to URL query parameters.
package querystate

import (
	"net/url"
	"sort"
	"strings"
)

// Field binds one filter value to a query parameter.
type Field struct {
	Name    string
	Default string
	// Allowed restricts the value; empty means free text.
	Allowed []string
	// Debounced marks free-text fields whose live updates are throttled.
	Debounced bool
}

func (f Field) allows(v string) bool {
	if len(f.Allowed) == 0 {
		return true
	}
	for _, a := range f.Allowed {
		if a == v {
			return true
		}
	}
	return false
}

// normalize maps a raw value onto the field's domain; invalid values fall back to the default.
func (f Field) normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if len(f.Allowed) > 0 {
		v = strings.ToLower(v)
	}
	if v == "" || !f.allows(v) {
		return f.Default
	}
	return v
}

// State is a full set of filter values keyed by field name.
type State map[string]string

// Get returns the value of a field, or "" when the field is unknown.
func (s State) Get(name string) string {
	return s[name]
}

// Schema is the set of fields a view exposes.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema. Field order is kept for Encode.
func NewSchema(fields ...Field) Schema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return Schema{fields: fields, index: idx}
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Parse reads every bound field from the query string. Unknown parameters are ignored.
func (s Schema) Parse(values url.Values) State {
	st := make(State, len(s.fields))
	for _, f := range s.fields {
		st[f.Name] = f.normalize(values.Get(f.Name))
	}
	return st
}

// Set returns a copy of st with name set to value. Unknown names leave the state unchanged.
func (s Schema) Set(st State, name, value string) State {
	f, ok := s.Field(name)
	if !ok {
		return st
	}
	next := make(State, len(s.fields))
	for _, field := range s.fields {
		if v, ok := st[field.Name]; ok {
			next[field.Name] = v
		} else {
			next[field.Name] = field.Default
		}
	}
	next[name] = f.normalize(value)
	return next
}

// Clear returns the state with every field at its default.
func (s Schema) Clear() State {
	st := make(State, len(s.fields))
	for _, f := range s.fields {
		st[f.Name] = f.Default
	}
	return st
}

// IsDefault reports whether every field sits at its default.
func (s Schema) IsDefault(st State) bool {
	for _, f := range s.fields {
		if v, ok := st[f.Name]; ok && v != f.Default {
			return false
		}
	}
	return true
}

// Encode renders the non-default values back to query parameters.
func (s Schema) Encode(st State) url.Values {
	out := url.Values{}
	for _, f := range s.fields {
		v, ok := st[f.Name]
		if !ok || v == f.Default {
			continue
		}
		out.Set(f.Name, v)
	}
	return out
}

// Names returns the bound parameter names, sorted.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
