// Package exclusion matches code systems against configured rules that force
// a fixed outcome instead of a terminology server round trip.
package exclusion

import (
	"errors"
	"fmt"

	"github.com/gofhir/txaudit/pkg/result"
)

// Rule forces Result and Reason for every Coding whose system equals URI.
type Rule struct {
	URI    string       `json:"uri" yaml:"uri" mapstructure:"uri"`
	Result result.Label `json:"result" yaml:"result" mapstructure:"result"`
	Reason string       `json:"reason" yaml:"reason" mapstructure:"reason"`
}

// Rules is an ordered rule list. The first rule with a matching URI wins.
type Rules []Rule

// Match returns the first rule whose URI equals system exactly.
// A nil system never matches.
func (rs Rules) Match(system *string) (Rule, bool) {
	if system == nil {
		return Rule{}, false
	}
	for _, r := range rs {
		if r.URI == *system {
			return r, true
		}
	}
	return Rule{}, false
}

// ErrEmptyURI is returned for a rule without a URI.
var ErrEmptyURI = errors.New("exclusion rule has no uri")

// Normalize fills rule defaults and checks every rule. A missing result
// becomes EXCLUDED and a missing reason the default exclusion reason.
func (rs Rules) Normalize() (Rules, error) {
	out := make(Rules, 0, len(rs))
	var errs []error
	for i, r := range rs {
		if r.URI == "" {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, ErrEmptyURI))
			continue
		}
		if r.Result == "" {
			r.Result = result.Excluded
		}
		if !r.Result.IsValid() {
			errs = append(errs, fmt.Errorf("rule %d (%s): result %q is not a known label", i, r.URI, r.Result))
			continue
		}
		if r.Reason == "" {
			r.Reason = result.ReasonExcludedDefault
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}

// URIs returns the configured system URIs in rule order.
func (rs Rules) URIs() []string {
	uris := make([]string, len(rs))
	for i, r := range rs {
		uris[i] = r.URI
	}
	return uris
}
