// Package features holds the symptom schema a model was trained against and
// the encoder that turns a symptom selection into model input.
package features

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Schema is the ordered list of symptom names fixed at training time.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema validates names and builds a Schema. Names must be non-blank and
// unique; order is preserved.
func NewSchema(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("schema has no symptoms")
	}
	s := &Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("schema entry %d is blank", i)
		}
		if prev, ok := s.index[name]; ok {
			return nil, fmt.Errorf("schema entry %d duplicates entry %d (%q)", i, prev, name)
		}
		s.names[i] = name
		s.index[name] = i
	}
	return s, nil
}

// LoadSchema reads a JSON array of symptom names.
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	s, err := NewSchema(names)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Names returns a copy of the symptom names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Schema) Len() int { return len(s.names) }

func (s *Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Halves splits the names at len/2 for the two symptom pickers.
func (s *Schema) Halves() ([]string, []string) {
	names := s.Names()
	half := len(names) / 2
	return names[:half], names[half:]
}

// Unknown returns the selected names that are not part of the schema, in
// selection order and without duplicates.
func (s *Schema) Unknown(selected []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range selected {
		if s.Contains(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
