package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"spines/internal/logging"
)

// Schema validates individual JSON documents.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON schema document registered under name.
func CompileSchema(name string, data []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

// MustCompileSchema is CompileSchema for embedded schemas known to be valid.
func MustCompileSchema(name string, data []byte) *Schema {
	s, err := CompileSchema(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks raw against the schema.
func (s *Schema) Validate(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode for validation: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("does not match %s: %w", s.name, err)
	}
	return nil
}

// LoadList reads a JSON array from path and decodes every element that
// passes schema. Elements that fail validation or decoding are dropped with
// a warning; the returned dropped count lets callers rewrite the file.
func LoadList[T any](path string, schema *Schema, logger *slog.Logger) ([]T, int, error) {
	var raw []json.RawMessage
	if _, err := Load(path, &raw, logger); err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, len(raw))
	dropped := 0
	for i, elem := range raw {
		var item T
		err := schema.Validate(elem)
		if err == nil {
			err = json.Unmarshal(elem, &item)
		}
		if err != nil {
			dropped++
			logging.WarnWithContext(logger, "dropping invalid list item", "list_item_invalid",
				logging.String("path", path),
				logging.Int("index", i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the item is removed from the list on next save"),
			)
			continue
		}
		items = append(items, item)
	}
	return items, dropped, nil
}
