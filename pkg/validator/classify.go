package validator

import (
	"errors"
	"fmt"

	"github.com/gofhir/txaudit/pkg/result"
	"github.com/gofhir/txaudit/pkg/terminology"
)

// classifyOutcome maps a server answer onto PASS, FAIL or ERROR.
func classifyOutcome(row result.ValidationResult, out *terminology.Outcome) result.ValidationResult {
	row.StatusCode = result.Ptr(out.StatusCode)
	message := ""
	if out.Message != nil {
		message = *out.Message
	}

	switch {
	case out.Valid == nil:
		row.Result = result.Error
		row.Reason = orDefault(message, result.ReasonMissingResult)
	case *out.Valid:
		row.Result = result.Pass
		row.Reason = orDefault(message, result.ReasonValid) + displayNote(row.DisplayProvided, out.Display)
	default:
		row.Result = result.Fail
		row.Reason = orDefault(message, result.ReasonInvalid)
	}
	return row
}

// displayNote compares the provided display with the server's canonical one.
func displayNote(provided, server *string) string {
	if provided == nil || *provided == "" {
		return ""
	}
	if server == nil || *server == "" {
		return fmt.Sprintf(" Server did not return a display for comparison with provided display ('%s').", *provided)
	}
	if *provided != *server {
		return fmt.Sprintf(" Provided display ('%s') differs from server display ('%s').", *provided, *server)
	}
	return ""
}

// classifyError maps a failed exchange onto an ERROR row.
func classifyError(row result.ValidationResult, err error) result.ValidationResult {
	row.Result = result.Error

	var (
		httpErr      *terminology.HTTPError
		transportErr *terminology.TransportError
		decodeErr    *terminology.DecodeError
	)
	switch {
	case errors.As(err, &httpErr):
		row.StatusCode = result.Ptr(httpErr.StatusCode)
		row.Reason = httpErr.Error()
		if div, diag, ok := httpErr.Details(); ok {
			row.Reason += fmt.Sprintf(" Details: %s / %s", div, diag)
		} else {
			row.Reason += " Response Body: " + httpErr.BodyPreview()
		}
	case errors.Is(err, terminology.ErrTimeout):
		row.StatusCode = result.Ptr(terminology.StatusRequestTimeout)
		row.Reason = result.ReasonTimeout
	case errors.As(err, &transportErr):
		row.Reason = "Request Exception: " + transportErr.Error()
	case errors.As(err, &decodeErr):
		row.StatusCode = result.Ptr(decodeErr.StatusCode)
		row.Reason = result.ReasonInvalidJSON
	default:
		row.Reason = "Unexpected validation error: " + err.Error()
	}
	return row
}

func isUnexpected(err error) bool {
	var (
		httpErr      *terminology.HTTPError
		transportErr *terminology.TransportError
		decodeErr    *terminology.DecodeError
	)
	return !errors.As(err, &httpErr) &&
		!errors.Is(err, terminology.ErrTimeout) &&
		!errors.As(err, &transportErr) &&
		!errors.As(err, &decodeErr)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
