package txaudit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/txaudit/pkg/exclusion"
	"github.com/gofhir/txaudit/pkg/report"
	"github.com/gofhir/txaudit/pkg/result"
)

const (
	snomed = "http://snomed.info/sct"
	loinc  = "http://loinc.org"

	r4TerminologyCapability = `{"resourceType":"CapabilityStatement","fhirVersion":"4.0.1",` +
		`"instantiates":["http://hl7.org/fhir/CapabilityStatement/terminology-server"]}`
)

type stubServer struct {
	*httptest.Server
	calls atomic.Int32
}

// newStubServer answers $validate-code with result=true for code 0012 only.
func newStubServer(t *testing.T, capability string) *stubServer {
	t.Helper()
	s := &stubServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/metadata", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(capability))
	})
	mux.HandleFunc("/CodeSystem/$validate-code", func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		w.Header().Set("Content-Type", "application/fhir+json")
		if r.URL.Query().Get("code") == "0012" {
			w.Write([]byte(`{"resourceType":"Parameters","parameter":[` +
				`{"name":"result","valueBoolean":true},{"name":"display","valueString":"Panadol"}]}`))
			return
		}
		w.Write([]byte(`{"resourceType":"Parameters","parameter":[` +
			`{"name":"result","valueBoolean":false},{"name":"message","valueString":"Unknown code"}]}`))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"med.json": `{"resourceType":"MedicationStatement","id":"med-1","medicationCodeableConcept":{` +
			`"coding":[{"system":"` + snomed + `","code":"0012","display":"Panadol"},` +
			`{"system":"` + snomed + `","code":"9999"}],"text":"Panadol"}}`,
		"obs.json": `{"resourceType":"Observation","id":"obs-1","code":{"coding":[{"system":"` + loinc + `","code":"8867-4"}]}}`,
		"bad.json": `{"resourceType":`,
		"notes.txt": `not a resource`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestAuditor_Run(t *testing.T) {
	srv := newStubServer(t, r4TerminologyCapability)
	m := NewMetrics()

	a, err := New(srv.URL,
		WithRules(exclusion.Rules{{URI: loinc, Result: result.Excluded}}),
		WithWorkers(4),
		WithMetrics(m),
	)
	require.NoError(t, err)

	rep, err := a.Run(context.Background(), writeCorpus(t))
	require.NoError(t, err)
	require.Len(t, rep.Rows, 4)

	assert.Equal(t, "bad.json", rep.Rows[0].File)
	assert.Equal(t, result.FileLevelPath, rep.Rows[0].Path)
	assert.Equal(t, result.Error, rep.Rows[0].Result)

	assert.Equal(t, result.Pass, rep.Rows[1].Result)
	assert.Equal(t, "med-1", rep.Rows[1].ResourceID)
	require.NotNil(t, rep.Rows[1].TextContext)
	assert.Equal(t, "Panadol", *rep.Rows[1].TextContext)
	assert.Equal(t, result.Fail, rep.Rows[2].Result)
	assert.Equal(t, result.Excluded, rep.Rows[3].Result)

	assert.Equal(t, int32(2), srv.calls.Load(), "excluded system must not be sent")
	assert.True(t, rep.HasFailures())
	assert.Equal(t, 1, rep.Counts[result.Pass])
	assert.NotEmpty(t, rep.Meta.RunID)
	assert.Equal(t, a.Endpoint(), rep.Meta.Endpoint)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemoteCallsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("invalid_json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsTotal.WithLabelValues("FAIL")))
}

func TestAuditor_RunIsIdempotent(t *testing.T) {
	srv := newStubServer(t, r4TerminologyCapability)
	a, err := New(srv.URL, WithWorkers(2))
	require.NoError(t, err)
	dir := writeCorpus(t)

	first, err := a.Run(context.Background(), dir)
	require.NoError(t, err)
	second, err := a.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.NotEqual(t, first.Meta.RunID, second.Meta.RunID)
}

func TestAuditor_CacheSize(t *testing.T) {
	srv := newStubServer(t, r4TerminologyCapability)
	a, err := New(srv.URL, WithCacheSize(16))
	require.NoError(t, err)
	dir := writeCorpus(t)

	_, err = a.Run(context.Background(), dir)
	require.NoError(t, err)
	_, err = a.Run(context.Background(), dir)
	require.NoError(t, err)

	// The memo is shared by the Auditor, so only the first run reaches the server.
	assert.Equal(t, int32(3), srv.calls.Load())
}

func TestAuditor_RunMissingDir(t *testing.T) {
	srv := newStubServer(t, r4TerminologyCapability)
	a, err := New(srv.URL)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestAuditor_CheckCapability(t *testing.T) {
	t.Run("terminology server", func(t *testing.T) {
		a, err := New(newStubServer(t, r4TerminologyCapability).URL)
		require.NoError(t, err)
		assert.NoError(t, a.CheckCapability(context.Background()))
	})

	t.Run("plain FHIR server", func(t *testing.T) {
		a, err := New(newStubServer(t, `{"resourceType":"CapabilityStatement","fhirVersion":"4.0.1"}`).URL)
		require.NoError(t, err)

		status, err := a.Capability(context.Background())
		require.NoError(t, err)
		assert.Equal(t, http.StatusTeapot, status)
		assert.ErrorIs(t, a.CheckCapability(context.Background()), ErrCapability)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		a, err := New(url)
		require.NoError(t, err)
		assert.ErrorIs(t, a.CheckCapability(context.Background()), ErrCapability)
	})
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("http://tx.example.org/fhir", WithRules(exclusion.Rules{{URI: ""}}))
	assert.Error(t, err)
}

func TestReport_Write(t *testing.T) {
	srv := newStubServer(t, r4TerminologyCapability)
	a, err := New(srv.URL)
	require.NoError(t, err)

	rep, err := a.Run(context.Background(), writeCorpus(t))
	require.NoError(t, err)

	out := t.TempDir()
	paths, err := rep.Write(out)
	require.NoError(t, err)
	require.Len(t, paths, len(report.DefaultFormats))
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	assert.Contains(t, rep.Summary(), "FAIL")
}
