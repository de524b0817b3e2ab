package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// FieldType is the JSON type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// Valid reports whether t is a supported field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldInteger, FieldNumber, FieldBoolean:
		return true
	}
	return false
}

// Field is one named, typed attribute of an extracted record.
type Field struct {
	Name        string    `yaml:"name" json:"name"`
	Type        FieldType `yaml:"type" json:"type"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema declares the record shape the extractor must emit. The model is
// asked for a JSON array of objects matching it.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Validate rejects schemas the extractor cannot describe.
func (s Schema) Validate() error {
	if s.Name == "" {
		return eris.New("model: schema name is required")
	}
	if len(s.Fields) == 0 {
		return eris.Errorf("model: schema %s has no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return eris.Errorf("model: schema %s has a field without a name", s.Name)
		}
		if seen[f.Name] {
			return eris.Errorf("model: schema %s has duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return eris.Errorf("model: field %s.%s has unknown type %q", s.Name, f.Name, f.Type)
		}
	}
	return nil
}

// FieldNames returns the field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

type jsonSchemaProperty struct {
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
}

type jsonSchema struct {
	Title      string                        `json:"title"`
	Type       string                        `json:"type"`
	Properties map[string]jsonSchemaProperty `json:"properties"`
	Required   []string                      `json:"required"`
}

// JSONSchema renders the schema as a JSON Schema object. Output is
// deterministic because encoding/json sorts map keys.
func (s Schema) JSONSchema() json.RawMessage {
	js := jsonSchema{
		Title:      s.Name,
		Type:       "object",
		Properties: make(map[string]jsonSchemaProperty, len(s.Fields)),
		Required:   s.FieldNames(),
	}
	for _, f := range s.Fields {
		js.Properties[f.Name] = jsonSchemaProperty{Type: f.Type, Description: f.Description}
	}
	b, _ := json.Marshal(js)
	return b
}
