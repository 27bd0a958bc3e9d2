package validator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofhir/fhir/r4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/txaudit/pkg/coding"
	"github.com/gofhir/txaudit/pkg/exclusion"
	"github.com/gofhir/txaudit/pkg/result"
	"github.com/gofhir/txaudit/pkg/terminology"
)

func ptr[T any](v T) *T { return &v }

// countingProvider returns a fixed outcome and counts calls.
type countingProvider struct {
	calls   atomic.Int32
	outcome *terminology.Outcome
	err     error
}

func (p *countingProvider) ValidateCode(context.Context, string, string) (*terminology.Outcome, error) {
	p.calls.Add(1)
	return p.outcome, p.err
}

func element(system, code, display *string) coding.Element {
	return coding.Element{
		Coding:     r4.Coding{System: system, Code: code, Display: display},
		ResourceID: "res-1",
		Path:       "Observation.code.coding[0]",
	}
}

func TestCheck_Exclusion(t *testing.T) {
	p := &countingProvider{outcome: &terminology.Outcome{Valid: ptr(true), StatusCode: 200}}
	v := New(p, WithRules(exclusion.Rules{
		{URI: "http://loinc.org", Result: result.Excluded, Reason: "manual review"},
	}))

	row := v.Check(context.Background(), "obs.json", element(ptr("http://loinc.org"), ptr("1234-5"), nil))

	assert.Equal(t, result.Excluded, row.Result)
	assert.Equal(t, "manual review", row.Reason)
	assert.Nil(t, row.StatusCode)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, "obs.json", row.File)
	assert.Equal(t, "res-1", row.ResourceID)
}

func TestCheck_ExclusionBeatsMissingCode(t *testing.T) {
	p := &countingProvider{}
	v := New(p, WithRules(exclusion.Rules{{URI: "http://loinc.org", Result: result.Info, Reason: "skip"}}))

	row := v.Check(context.Background(), "f", element(ptr("http://loinc.org"), nil, ptr("Glucose")))

	assert.Equal(t, result.Info, row.Result)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestCheck_DisplayWithoutCode(t *testing.T) {
	p := &countingProvider{}
	v := New(p)

	row := v.Check(context.Background(), "f", element(ptr("http://snomed.info/sct"), nil, ptr("Panadol")))

	assert.Equal(t, result.Error, row.Result)
	assert.Equal(t, "Display provided but code is missing.", row.Reason)
	assert.Nil(t, row.StatusCode)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestCheck_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		display *string
		outcome *terminology.Outcome
		want    result.Label
		reason  string
	}{
		{
			name:    "valid default reason",
			outcome: &terminology.Outcome{Valid: ptr(true), StatusCode: 200},
			want:    result.Pass,
			reason:  "Code is valid.",
		},
		{
			name:    "valid with message",
			outcome: &terminology.Outcome{Valid: ptr(true), Message: ptr("ok then"), StatusCode: 200},
			want:    result.Pass,
			reason:  "ok then",
		},
		{
			name:    "valid display differs",
			display: ptr("Panadol"),
			outcome: &terminology.Outcome{Valid: ptr(true), Display: ptr("Paracetamol"), StatusCode: 200},
			want:    result.Pass,
			reason:  "Code is valid. Provided display ('Panadol') differs from server display ('Paracetamol').",
		},
		{
			name:    "valid display matches",
			display: ptr("Paracetamol"),
			outcome: &terminology.Outcome{Valid: ptr(true), Display: ptr("Paracetamol"), StatusCode: 200},
			want:    result.Pass,
			reason:  "Code is valid.",
		},
		{
			name:    "valid no server display",
			display: ptr("Panadol"),
			outcome: &terminology.Outcome{Valid: ptr(true), StatusCode: 200},
			want:    result.Pass,
			reason:  "Code is valid. Server did not return a display for comparison with provided display ('Panadol').",
		},
		{
			name:    "invalid default reason",
			outcome: &terminology.Outcome{Valid: ptr(false), StatusCode: 200},
			want:    result.Fail,
			reason:  "Code is not valid according to the terminology server.",
		},
		{
			name:    "invalid with message",
			outcome: &terminology.Outcome{Valid: ptr(false), Message: ptr("Unknown code"), StatusCode: 200},
			want:    result.Fail,
			reason:  "Unknown code",
		},
		{
			name:    "missing result",
			outcome: &terminology.Outcome{StatusCode: 200},
			want:    result.Error,
			reason:  "Validation response missing result parameter or it was not boolean.",
		},
		{
			name:    "not parameters",
			outcome: &terminology.Outcome{Message: ptr(result.ReasonNotParameters), StatusCode: 200},
			want:    result.Error,
			reason:  result.ReasonNotParameters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingProvider{outcome: tt.outcome}
			v := New(p)

			row := v.Check(context.Background(), "f", element(ptr("http://snomed.info/sct"), ptr("123"), tt.display))

			assert.Equal(t, tt.want, row.Result)
			assert.Equal(t, tt.reason, row.Reason)
			require.NotNil(t, row.StatusCode)
			assert.Equal(t, 200, *row.StatusCode)
			assert.Equal(t, int32(1), p.calls.Load())
			assert.NoError(t, row.Validate())
		})
	}
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
		status *int
	}{
		{
			name:   "http error with outcome",
			err:    &terminology.HTTPError{StatusCode: 400, Reason: "Bad Request", Body: []byte(`{"text":{"div":"d"},"issue":[{"diagnostics":"bad system"}]}`)},
			reason: "HTTP Error: 400 Bad Request. Details: d / bad system",
			status: ptr(400),
		},
		{
			name:   "http error raw body",
			err:    &terminology.HTTPError{StatusCode: 502, Reason: "Bad Gateway", Body: []byte("upstream down")},
			reason: "HTTP Error: 502 Bad Gateway. Response Body: upstream down",
			status: ptr(502),
		},
		{
			name:   "timeout",
			err:    terminology.ErrTimeout,
			reason: "Request timed out.",
			status: ptr(408),
		},
		{
			name:   "transport",
			err:    &terminology.TransportError{Err: errors.New("dial tcp: connection refused")},
			reason: "Request Exception: dial tcp: connection refused",
		},
		{
			name:   "decode",
			err:    &terminology.DecodeError{StatusCode: 200, Err: errors.New("bad")},
			reason: "Invalid JSON response from server.",
			status: ptr(200),
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			reason: "Unexpected validation error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(&countingProvider{err: tt.err})

			row := v.Check(context.Background(), "f", element(ptr("http://snomed.info/sct"), ptr("123"), nil))

			assert.Equal(t, result.Error, row.Result)
			assert.Equal(t, tt.reason, row.Reason)
			assert.Equal(t, tt.status, row.StatusCode)
		})
	}
}

func TestCheck_RecoversPanic(t *testing.T) {
	v := New(terminology.ProviderFunc(func(context.Context, string, string) (*terminology.Outcome, error) {
		panic("nil map write")
	}))

	row := v.Check(context.Background(), "f", element(ptr("s"), ptr("c"), nil))

	assert.Equal(t, result.Error, row.Result)
	assert.Equal(t, "Unexpected validation error: panic: nil map write", row.Reason)
	assert.Nil(t, row.StatusCode)
}

func TestCheck_NilOutcome(t *testing.T) {
	v := New(&countingProvider{})

	row := v.Check(context.Background(), "f", element(ptr("s"), ptr("c"), nil))

	assert.Equal(t, result.Error, row.Result)
	assert.True(t, strings.HasPrefix(row.Reason, "Unexpected validation error: "))
}

func TestCheck_AgainstStubServer(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   result.Label
		reason string
	}{
		{
			name:   "panadol valid",
			body:   `{"resourceType":"Parameters","parameter":[{"name":"result","valueBoolean":true}]}`,
			want:   result.Pass,
			reason: "Code is valid.",
		},
		{
			name:   "panadol invalid",
			body:   `{"resourceType":"Parameters","parameter":[{"name":"result","valueBoolean":false}]}`,
			want:   result.Fail,
			reason: "Code is not valid according to the terminology server.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "http://snomed.info/sct", r.URL.Query().Get("url"))
				assert.Equal(t, "79115011000036100", r.URL.Query().Get("code"))
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := terminology.NewClient(srv.URL, terminology.WithTimeout(time.Second))
			require.NoError(t, err)
			v := New(client)

			el := element(ptr("http://snomed.info/sct"), ptr("79115011000036100"), nil)
			el.TextContext = ptr("Panadol")
			row := v.Check(context.Background(), "med.json", el)

			assert.Equal(t, tt.want, row.Result)
			assert.Equal(t, tt.reason, row.Reason)
			assert.Equal(t, "Panadol", *row.TextContext)
			assert.Equal(t, "http://snomed.info/sct", *row.System)
			assert.Equal(t, "79115011000036100", *row.Code)
			require.NotNil(t, row.StatusCode)
			assert.Equal(t, http.StatusOK, *row.StatusCode)
		})
	}
}
