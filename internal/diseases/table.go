// Package diseases looks up descriptive text for a predicted disease label.
package diseases

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	NoCause    = "Not available"
	NoMedicine = "Please consult a doctor or take general pain relievers"
	Advisory   = "Based on symptoms and disease, consult your Doctor or take medicine for your respective disease."
)

// Record is one row of the disease table.
type Record struct {
	Disease  string            `json:"disease"`
	Causes   string            `json:"causes"`
	Medicine string            `json:"medicine"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Advice is what the diagnosis view shows for a predicted label.
type Advice struct {
	Found    bool              `json:"found"`
	Cause    string            `json:"cause,omitempty"`
	Medicine string            `json:"medicine,omitempty"`
	Message  string            `json:"message,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Table is an immutable, case-insensitive index of disease records.
type Table struct {
	rows map[string]Record
	size int
}

// NewTable indexes records by normalized disease name. The first record for a
// name wins; records with a blank name are dropped.
func NewTable(records []Record) *Table {
	t := &Table{rows: make(map[string]Record, len(records))}
	for _, r := range records {
		key := normalize(r.Disease)
		if key == "" {
			continue
		}
		if _, dup := t.rows[key]; dup {
			continue
		}
		t.rows[key] = r
		t.size++
	}
	return t
}

// LoadTable reads a CSV file with a "disease" column and optional "causes"
// and "medicine" columns. Header names are trimmed and lower-cased.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open disease table: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("disease table %s: %w", path, err)
	}
	return NewTable(records), nil
}

// ReadCSV parses disease records from CSV.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	diseaseCol := -1
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		if columns[i] == "disease" && diseaseCol == -1 {
			diseaseCol = i
		}
	}
	if diseaseCol == -1 {
		return nil, fmt.Errorf("no disease column in header %v", header)
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var rec Record
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			value = strings.TrimSpace(value)
			switch columns[i] {
			case "disease":
				if i == diseaseCol {
					rec.Disease = value
				}
			case "causes":
				rec.Causes = value
			case "medicine":
				rec.Medicine = value
			case "":
			default:
				if value == "" {
					continue
				}
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[columns[i]] = value
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Lookup matches label against the table after trimming and lower-casing.
// Blank fields fall back to fixed placeholders; an unknown label yields the
// generic advisory.
func (t *Table) Lookup(label string) Advice {
	rec, ok := t.rows[normalize(label)]
	if !ok {
		return Advice{Found: false, Message: Advisory}
	}

	advice := Advice{Found: true, Cause: rec.Causes, Medicine: rec.Medicine, Extra: rec.Extra}
	if isBlank(advice.Cause) {
		advice.Cause = NoCause
	}
	if isBlank(advice.Medicine) {
		advice.Medicine = NoMedicine
	}
	return advice
}

// Len is the number of distinct diseases.
func (t *Table) Len() int { return t.size }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isBlank also treats the missing-value markers spreadsheet exports emit as blank.
func isBlank(s string) bool {
	switch normalize(s) {
	case "", "nan", "null", "none", "n/a":
		return true
	}
	return false
}
