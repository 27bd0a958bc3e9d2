package txaudit

import (
	"github.com/gofhir/txaudit/pkg/report"
	"github.com/gofhir/txaudit/pkg/result"
)

// Report is the outcome of one audit run.
type Report struct {
	Meta   report.Meta
	Rows   []result.ValidationResult
	Counts result.Counts
}

// HasFailures reports whether any row is FAIL.
func (r *Report) HasFailures() bool {
	return r.Counts.HasFailures()
}

// Write renders the report in each format into dir and returns the paths
// written, in order.
func (r *Report) Write(dir string, formats ...report.Format) ([]string, error) {
	if len(formats) == 0 {
		formats = report.DefaultFormats
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		p, err := report.Write(dir, f, r.Meta, r.Rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Summary renders the terminal summary.
func (r *Report) Summary() string {
	return report.Summary(r.Meta, r.Rows)
}
