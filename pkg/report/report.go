// Package report renders audit rows to files and to the terminal.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofhir/txaudit/pkg/result"
)

// BaseName is the stem of every report file.
const BaseName = "TestDataValidationReport"

// TimeLayout stamps report file names.
const TimeLayout = "20060102-150405"

// Meta describes the run that produced a report.
type Meta struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Endpoint string    `json:"endpoint" yaml:"endpoint"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
}

// Duration returns the run's wall time.
func (m Meta) Duration() time.Duration {
	if m.Finished.Before(m.Started) {
		return 0
	}
	return m.Finished.Sub(m.Started)
}

// Format is a report file format.
type Format string

// Report formats.
const (
	HTML   Format = "html"
	XLSX   Format = "xlsx"
	CSV    Format = "csv"
	JSON   Format = "json"
	YAML   Format = "yaml"
	SQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{HTML, XLSX, CSV, JSON, YAML, SQLite}

// DefaultFormats are written when none are requested.
var DefaultFormats = []Format{HTML, XLSX}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		f = YAML
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FileName returns the report file name for f. The HTML report keeps a fixed
// name; every other format is stamped with the run start time.
func FileName(f Format, started time.Time) string {
	if f == HTML {
		return BaseName + ".html"
	}
	ext := string(f)
	if f == SQLite {
		ext = "db"
	}
	return fmt.Sprintf("%s-%s.%s", BaseName, started.Format(TimeLayout), ext)
}

// Write renders rows as f into dir and returns the file path.
func Write(dir string, f Format, meta Meta, rows []result.ValidationResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(f, meta.Started))

	var err error
	switch f {
	case HTML:
		err = writeFile(path, func(file *os.File) error { return WriteHTML(file, meta, rows) })
	case CSV:
		err = writeFile(path, func(file *os.File) error { return WriteCSV(file, rows) })
	case JSON:
		err = writeFile(path, func(file *os.File) error { return WriteJSON(file, meta, rows) })
	case YAML:
		err = writeFile(path, func(file *os.File) error { return WriteYAML(file, meta, rows) })
	case XLSX:
		err = WriteXLSX(path, rows)
	case SQLite:
		err = WriteSQLite(path, meta, rows)
	default:
		return "", fmt.Errorf("unknown report format %q", f)
	}
	if err != nil {
		return "", fmt.Errorf("write %s report: %w", f, err)
	}
	return path, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// document is the serialised form used by the JSON and YAML reports.
type document struct {
	Meta    Meta                      `json:"meta" yaml:"meta"`
	Counts  map[string]int            `json:"counts" yaml:"counts"`
	Results []result.ValidationResult `json:"results" yaml:"results"`
}

func newDocument(meta Meta, rows []result.ValidationResult) document {
	counts := make(map[string]int)
	for label, n := range result.Tally(rows) {
		counts[string(label)] = n
	}
	if rows == nil {
		rows = []result.ValidationResult{}
	}
	return document{Meta: meta, Counts: counts, Results: rows}
}
