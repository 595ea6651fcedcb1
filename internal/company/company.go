package company

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Record is one target organization from the companies CSV. Optional
// columns are empty strings when absent. Records are immutable once
// parsed.
type Record struct {
	Company      string
	ContactEmail string
	ApplyURL     string
	ContactName  string
	IntroNote    string
}

var header = []string{"company", "contact_email", "apply_url", "contact_name", "intro_note"}

// Load reads the companies CSV at path. If the file does not exist a
// starter file with two example rows is written first and its records
// are returned. A malformed CSV is a fatal parse error for the caller.
func Load(path string) ([]Record, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeStarter(path); err != nil {
			return nil, err
		}
		fmt.Printf("[i] Created template companies CSV at %s. Add your targets and rerun.\n", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open companies file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse companies file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("companies file %s: missing header row", path)
	}

	// Columns are matched by header name so order does not matter.
	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["company"]; !ok {
		return nil, fmt.Errorf("companies file %s: missing required column %q", path, "company")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for _, row := range rows[1:] {
		records = append(records, Record{
			Company:      field(row, "company"),
			ContactEmail: field(row, "contact_email"),
			ApplyURL:     field(row, "apply_url"),
			ContactName:  field(row, "contact_name"),
			IntroNote:    field(row, "intro_note"),
		})
	}
	return records, nil
}

func writeStarter(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create companies dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create starter companies file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{
		header,
		{"Exemple SA", "hr@exemple.fr", "", "Mme Dupont", "project data/JS"},
		{"Startup XYZ", "", "https://startup.xyz/jobs/stage-dev", "", "responsive web applications"},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write starter companies file: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
