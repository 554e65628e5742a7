package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts "schema.table", "table" or a {schema, name} mapping.
func (t *TableRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		schema, name, ok := strings.Cut(value.Value, ".")
		if !ok {
			schema, name = "", value.Value
		}
		t.Schema, t.Name = schema, name
	case yaml.MappingNode:
		var raw struct {
			Schema string `yaml:"schema"`
			Name   string `yaml:"name"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		t.Schema, t.Name = raw.Schema, raw.Name
	default:
		return &ValidationError{Field: fmt.Sprintf("line %d", value.Line), Message: "table must be a string or mapping"}
	}
	if t.Schema == "" {
		t.Schema = "public"
	}
	if t.Name == "" {
		return &ValidationError{Field: fmt.Sprintf("line %d", value.Line), Message: "table name is empty"}
	}
	return nil
}
