package terminology

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// ErrTimeout is returned when a request does not complete within the
// configured timeout.
var ErrTimeout = errors.New("terminology request timed out")

// StatusRequestTimeout is reported for timed out requests.
const StatusRequestTimeout = 408

// bodyPreviewRunes bounds the raw body quoted in HTTP error reasons.
const bodyPreviewRunes = 200

// HTTPError is a response with a 4xx or 5xx status.
type HTTPError struct {
	StatusCode int
	// Reason is the reason phrase, e.g. "Not Found".
	Reason string
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error: %d %s.", e.StatusCode, e.Reason)
}

// Details returns the narrative div and first issue diagnostics of an
// OperationOutcome shaped body. Missing members fall back to placeholder text;
// ok is false when the body does not have that shape at all.
func (e *HTTPError) Details() (div, diagnostics string, ok bool) {
	body := e.Body
	if len(body) == 0 || !jsonObject(body) {
		return "", "", false
	}

	div = "No details provided."
	text, dt, _, err := jsonparser.Get(body, "text")
	switch {
	case dt == jsonparser.NotExist:
	case err != nil || dt != jsonparser.Object:
		return "", "", false
	default:
		if v, ok := member(text, "div"); ok {
			div = v
		}
	}

	diagnostics = "No diagnostics."
	issues, dt, _, err := jsonparser.Get(body, "issue")
	switch {
	case dt == jsonparser.NotExist:
	case err != nil || dt != jsonparser.Array:
		return "", "", false
	default:
		first, dt, _, err := jsonparser.Get(issues, "[0]")
		if err != nil || dt != jsonparser.Object {
			return "", "", false
		}
		if v, ok := member(first, "diagnostics"); ok {
			diagnostics = v
		}
	}
	return div, diagnostics, true
}

// BodyPreview returns the response body truncated to 200 characters.
func (e *HTTPError) BodyPreview() string {
	s := strings.ToValidUTF8(string(e.Body), "�")
	if utf8.RuneCountInString(s) <= bodyPreviewRunes {
		return s
	}
	return string([]rune(s)[:bodyPreviewRunes])
}

// TransportError wraps a failure to complete the HTTP exchange.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a successful response whose body is not JSON.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func jsonObject(data []byte) bool {
	if !json.Valid(data) {
		return false
	}
	_, dt, _, err := jsonparser.Get(data)
	return err == nil && dt == jsonparser.Object
}

// member returns an object member as text: strings unquoted, anything else
// in its JSON spelling. Null counts as absent.
func member(obj []byte, key string) (string, bool) {
	v, dt, _, err := jsonparser.Get(obj, key)
	if err != nil || dt == jsonparser.NotExist || dt == jsonparser.Null {
		return "", false
	}
	if dt == jsonparser.String {
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return string(v), true
		}
		return s, true
	}
	return string(v), true
}
