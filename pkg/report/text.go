package report

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gofhir/txaudit/pkg/result"
)

// WriteCSV writes a header row and one line per result.
func WriteCSV(w io.Writer, rows []result.ValidationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the run metadata, label counts and results.
func WriteJSON(w io.Writer, meta Meta, rows []result.ValidationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(meta, rows))
}

// WriteYAML writes the same document as WriteJSON in YAML.
func WriteYAML(w io.Writer, meta Meta, rows []result.ValidationResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(meta, rows)); err != nil {
		return err
	}
	return enc.Close()
}
