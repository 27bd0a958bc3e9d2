package report

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/gofhir/txaudit/pkg/result"
)

func sampleMeta() Meta {
	started := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	return Meta{
		RunID:    "run-1",
		Endpoint: "https://tx.example.org/fhir",
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
	}
}

func sampleRows() []result.ValidationResult {
	return []result.ValidationResult{
		{
			File: "med.json", ResourceID: "m1", Path: "MedicationStatement.code.coding[0]",
			Code: result.Ptr("0012"), TextContext: result.Ptr("Panadol"), System: result.Ptr("http://snomed.info/sct"),
			Result: result.Pass, Reason: "Code is valid.", StatusCode: result.Ptr(200),
		},
		{
			File: "obs.json", ResourceID: "o1", Path: "Observation.code.coding[0]",
			Code: result.Ptr("bad"), System: result.Ptr("http://loinc.org"),
			Result: result.Fail, Reason: "Code is not valid according to the terminology server.", StatusCode: result.Ptr(200),
		},
		result.FileError("broken.json", "Invalid JSON format"),
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, YAML, got)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	started := sampleMeta().Started
	assert.Equal(t, "TestDataValidationReport.html", FileName(HTML, started))
	assert.Equal(t, "TestDataValidationReport-20250506-070809.xlsx", FileName(XLSX, started))
	assert.Equal(t, "TestDataValidationReport-20250506-070809.db", FileName(SQLite, started))
	assert.Equal(t, "TestDataValidationReport-20250506-070809.csv", FileName(CSV, started))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, result.Columns, records[0])
	assert.Equal(t, "0012", records[1][3])
	assert.Equal(t, "Panadol", records[1][5])
	assert.Equal(t, "FAIL", records[2][7])
	assert.Equal(t, "File Level", records[3][2])
	assert.Equal(t, "", records[3][9])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMeta(), sampleRows()))

	var doc struct {
		Meta    Meta             `json:"meta"`
		Counts  map[string]int   `json:"counts"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.Meta.RunID)
	assert.Equal(t, 1, doc.Counts["PASS"])
	assert.Equal(t, 1, doc.Counts["FAIL"])
	assert.Equal(t, 1, doc.Counts["ERROR"])
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "0012", doc.Results[0]["code"])
	assert.Nil(t, doc.Results[2]["status_code"])
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMeta(), nil))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleMeta(), sampleRows()))

	var doc struct {
		Meta    Meta                      `yaml:"meta"`
		Results []result.ValidationResult `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "https://tx.example.org/fhir", doc.Meta.Endpoint)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, result.Fail, doc.Results[1].Result)
	assert.Equal(t, "0012", *doc.Results[0].Code)
}

func TestWriteHTML(t *testing.T) {
	rows := sampleRows()
	rows[1].Reason = `<script>alert("x")</script>`

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleMeta(), rows))
	out := buf.String()

	assert.Contains(t, out, "<th>status_code</th>")
	assert.Contains(t, out, `<td class="pass">PASS</td>`)
	assert.Contains(t, out, `<td class="fail">FAIL</td>`)
	assert.Contains(t, out, "MedicationStatement.code.coding[0]")
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "PASS: 1")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRows()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, result.Columns, rows[0])
	assert.Equal(t, "0012", rows[1][3])
	assert.Equal(t, "PASS", rows[1][7])
	assert.Equal(t, "200", rows[1][9])

	width, err := f.GetColWidth(SheetName, "C")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, width, 0.01)

	passID, err := f.GetCellStyle(SheetName, "H2")
	require.NoError(t, err)
	failID, err := f.GetCellStyle(SheetName, "H3")
	require.NoError(t, err)
	assert.NotZero(t, passID)
	assert.NotZero(t, failID)
	assert.NotEqual(t, passID, failID)
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.db")
	require.NoError(t, WriteSQLite(path, sampleMeta(), sampleRows()))
	// A second write replaces the file.
	require.NoError(t, WriteSQLite(path, sampleMeta(), sampleRows()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM results WHERE run_id = ?`, "run-1").Scan(&n))
	assert.Equal(t, 3, n)

	var code sql.NullString
	var status sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT code, status_code FROM results WHERE result = 'ERROR'`).Scan(&code, &status))
	assert.False(t, code.Valid)
	assert.False(t, status.Valid)

	var endpoint string
	require.NoError(t, db.QueryRow(`SELECT endpoint FROM runs`).Scan(&endpoint))
	assert.Equal(t, "https://tx.example.org/fhir", endpoint)
}

func TestWrite_AllFormats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	for _, f := range Formats {
		path, err := Write(dir, f, sampleMeta(), sampleRows())
		require.NoError(t, err, f)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), f)
	}

	_, err := Write(dir, Format("pdf"), sampleMeta(), nil)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	out := Summary(sampleMeta(), sampleRows())

	assert.Contains(t, out, "Terminology audit")
	assert.Contains(t, out, "https://tx.example.org/fhir")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "Failures")
	assert.Contains(t, out, "http://loinc.org|bad")
	assert.NotContains(t, out, "INFO")
}

func TestSummary_TruncatesFailures(t *testing.T) {
	var rows []result.ValidationResult
	for i := 0; i < MaxListedFailures+3; i++ {
		rows = append(rows, result.ValidationResult{File: "f.json", Result: result.Fail, Reason: "x"})
	}

	out := Summary(sampleMeta(), rows)
	assert.Contains(t, out, "and 3 more")
}

func TestMetaDuration(t *testing.T) {
	m := sampleMeta()
	assert.Equal(t, 1500*time.Millisecond, m.Duration())
	m.Finished = m.Started.Add(-time.Second)
	assert.Zero(t, m.Duration())
}
