// Package result defines the audit row produced for every coded element or
// structural anomaly, and the fixed label taxonomy those rows use.
package result

import "fmt"

// Label is the outcome of one audit row.
type Label string

// Result labels.
const (
	// Pass means the terminology server confirmed the code.
	Pass Label = "PASS"
	// Fail means the terminology server rejected the code.
	Fail Label = "FAIL"
	// Error means validation could not be completed or the input was malformed.
	Error Label = "ERROR"
	// Info is a non-actionable observation.
	Info Label = "INFO"
	// Excluded is the default label forced by an exclusion rule.
	Excluded Label = "EXCLUDED"
	// Unknown is the label of a row that was never classified.
	Unknown Label = "UNKNOWN"
)

// Labels lists every label in report order.
var Labels = []Label{Pass, Fail, Error, Info, Excluded, Unknown}

// IsValid reports whether l belongs to the taxonomy.
func (l Label) IsValid() bool {
	switch l {
	case Pass, Fail, Error, Info, Excluded, Unknown:
		return true
	default:
		return false
	}
}

// String returns the label text.
func (l Label) String() string {
	return string(l)
}

// FileLevelPath is the path used for rows that describe a whole file.
const FileLevelPath = "File Level"

// ValidationResult is one audit row. Pointer fields are nil when the value
// was absent from the input.
type ValidationResult struct {
	File            string  `json:"file" yaml:"file"`
	ResourceID      string  `json:"resource_id" yaml:"resource_id"`
	Path            string  `json:"path" yaml:"path"`
	Code            *string `json:"code" yaml:"code"`
	DisplayProvided *string `json:"display_provided" yaml:"display_provided"`
	TextContext     *string `json:"text_context" yaml:"text_context"`
	System          *string `json:"system" yaml:"system"`
	Result          Label   `json:"result" yaml:"result"`
	Reason          string  `json:"reason" yaml:"reason"`
	StatusCode      *int    `json:"status_code" yaml:"status_code"`
}

// Validate checks the row invariants.
func (r ValidationResult) Validate() error {
	if !r.Result.IsValid() {
		return fmt.Errorf("result %q is not a known label", r.Result)
	}
	if r.Result != Pass && r.Reason == "" {
		return fmt.Errorf("result %s at %s has no reason", r.Result, r.Path)
	}
	return nil
}

// FileError builds the single row reported for a file that could not be
// processed.
func FileError(file, reason string) ValidationResult {
	return ValidationResult{
		File:       file,
		ResourceID: "N/A",
		Path:       FileLevelPath,
		Result:     Error,
		Reason:     reason,
	}
}

// Columns is the fixed report column order.
var Columns = []string{
	"file", "resource_id", "path", "code", "display_provided",
	"text_context", "system", "result", "reason", "status_code",
}

// Row renders the result as strings in Columns order. Absent values are empty.
func (r ValidationResult) Row() []string {
	status := ""
	if r.StatusCode != nil {
		status = fmt.Sprintf("%d", *r.StatusCode)
	}
	return []string{
		r.File,
		r.ResourceID,
		r.Path,
		deref(r.Code),
		deref(r.DisplayProvided),
		deref(r.TextContext),
		deref(r.System),
		string(r.Result),
		r.Reason,
		status,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
