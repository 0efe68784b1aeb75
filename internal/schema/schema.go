// Package schema models the externally supplied description of the
// queryable domain: tables, columns, and the legal values for each
// column. The pipeline treats a loaded schema as an immutable value and
// passes it through to every stage.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nlqbot/nlq-server/internal/objectstore"
)

// Column describes one attribute of a table.
type Column struct {
	Name           string   `json:"column_name"`
	DataType       string   `json:"data_type"`
	Description    string   `json:"description"`
	PossibleValues []string `json:"possible_values,omitempty"`
}

// Table describes one table and its columns.
type Table struct {
	Name        string   `json:"table_name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// Schema is the full domain description handed to the model prompts.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Parse decodes a schema document. Both the nested shape
// {"tables": [...]} and the flatter single-table variant
// {"table_name": ..., "columns": [...]} are accepted.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}

	if len(s.Tables) == 0 {
		var single Table
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("decode single-table schema document: %w", err)
		}
		if single.Name != "" {
			s.Tables = []Table{single}
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if len(s.Tables) == 0 {
		return fmt.Errorf("schema document contains no tables")
	}
	for _, t := range s.Tables {
		if t.Name == "" {
			return fmt.Errorf("schema table with empty table_name")
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("schema table %q has no columns", t.Name)
		}
		for _, c := range t.Columns {
			if c.Name == "" {
				return fmt.Errorf("schema table %q has a column with empty column_name", t.Name)
			}
		}
	}
	return nil
}

// Render returns the schema as indented JSON, the form the model
// prompts consume.
func (s *Schema) Render() string {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		// Marshalling a value we just decoded cannot fail.
		return ""
	}
	return string(data)
}

// Load fetches and parses the schema document stored under key.
func Load(ctx context.Context, store objectstore.Store, key string) (*Schema, error) {
	data, err := store.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch schema %q: %w", key, err)
	}
	return Parse(data)
}
