package rules

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Rule tables persist as plain CSV, one row per pattern, columns
// label,pattern. Row order is evaluation order, so the files are
// format-stable and diffs against them are behavior changes.

// LoadPatternCSV reads one rule table from a CSV file. A header row
// "label,pattern" is accepted and skipped.
func LoadPatternCSV(path string) ([]PatternRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing rule table %s: %w", path, err)
	}

	rows := make([]PatternRow, 0, len(records))
	for i, rec := range records {
		label := strings.TrimSpace(rec[0])
		pattern := rec[1]
		if i == 0 && strings.EqualFold(label, "label") {
			continue
		}
		if label == "" || strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("rule table %s row %d: empty label or pattern", path, i+1)
		}
		rows = append(rows, PatternRow{Group: label, Pattern: pattern})
	}
	return rows, nil
}

// SavePatternCSV writes one rule table to a CSV file with a header row.
func SavePatternCSV(path string, rows []PatternRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating rule table %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"label", "pattern"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Group, row.Pattern}); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadCatalogDir builds a catalog from a directory of rule tables.
// Recognized files: categories.csv, fields.csv, fields_attach.csv.
// Missing files fall back to the built-in defaults, so a rules directory
// can override a single table.
func LoadCatalogDir(dir string) (*Catalog, error) {
	opts := Options{}

	load := func(name string) ([]PatternRow, error) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
		return LoadPatternCSV(path)
	}

	var err error
	if opts.CategoryRows, err = load("categories.csv"); err != nil {
		return nil, err
	}
	if opts.FieldRows, err = load("fields.csv"); err != nil {
		return nil, err
	}
	if opts.AttachFieldRows, err = load("fields_attach.csv"); err != nil {
		return nil, err
	}

	return NewCatalogWithOptions(opts)
}
