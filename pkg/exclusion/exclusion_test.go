package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofhir/txaudit/pkg/result"
)

func ptr(s string) *string { return &s }

func TestMatch(t *testing.T) {
	rules := Rules{
		{URI: "http://loinc.org", Result: result.Excluded, Reason: "manual review"},
		{URI: "http://loinc.org", Result: result.Info, Reason: "shadowed"},
		{URI: "http://snomed.info/sct", Result: result.Info, Reason: "snomed"},
	}

	tests := []struct {
		name   string
		system *string
		want   string
		ok     bool
	}{
		{"first match wins", ptr("http://loinc.org"), "manual review", true},
		{"second rule", ptr("http://snomed.info/sct"), "snomed", true},
		{"no prefix match", ptr("http://loinc.org/extra"), "", false},
		{"no partial match", ptr("http://loinc"), "", false},
		{"case sensitive", ptr("HTTP://LOINC.ORG"), "", false},
		{"nil system", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := rules.Match(tt.system)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, r.Reason)
		})
	}
}

func TestMatchEmptyRules(t *testing.T) {
	var rules Rules
	_, ok := rules.Match(ptr("http://loinc.org"))
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	rules, err := Rules{
		{URI: "http://loinc.org"},
		{URI: "http://snomed.info/sct", Result: result.Info, Reason: "kept"},
	}.Normalize()
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, result.Excluded, rules[0].Result)
	assert.Equal(t, result.ReasonExcludedDefault, rules[0].Reason)
	assert.Equal(t, result.Info, rules[1].Result)
	assert.Equal(t, "kept", rules[1].Reason)
}

func TestNormalizeErrors(t *testing.T) {
	rules, err := Rules{
		{Result: result.Excluded},
		{URI: "http://a", Result: "SKIPPED"},
		{URI: "http://b"},
	}.Normalize()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyURI)
	assert.Contains(t, err.Error(), "SKIPPED")
	require.Len(t, rules, 1)
	assert.Equal(t, "http://b", rules[0].URI)
}

func TestURIs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Rules{{URI: "a"}, {URI: "b"}}.URIs())
}
