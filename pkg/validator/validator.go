// Package validator checks a single Coding: exclusion rules first, then the
// display-without-code short circuit, then the terminology server.
package validator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/gofhir/txaudit/pkg/coding"
	"github.com/gofhir/txaudit/pkg/exclusion"
	"github.com/gofhir/txaudit/pkg/result"
	"github.com/gofhir/txaudit/pkg/terminology"
)

// Validator turns Codings into audit rows. It is safe for concurrent use.
type Validator struct {
	provider terminology.Provider
	rules    exclusion.Rules
	logger   zerolog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithRules sets the exclusion rules.
func WithRules(rules exclusion.Rules) Option {
	return func(v *Validator) {
		v.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a Validator that asks provider about codes that are not
// excluded.
func New(provider terminology.Provider, opts ...Option) *Validator {
	v := &Validator{
		provider: provider,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With().Str("component", "validator").Logger()
	return v
}

// Check validates one Coding found in file. It never fails: every problem is
// reported as a row.
func (v *Validator) Check(ctx context.Context, file string, el coding.Element) result.ValidationResult {
	row := result.ValidationResult{
		File:            file,
		ResourceID:      el.ResourceID,
		Path:            el.Path,
		Code:            el.Code,
		DisplayProvided: el.Display,
		TextContext:     el.TextContext,
		System:          el.System,
		Result:          result.Unknown,
	}
	log := v.logger.With().Str("file", file).Str("path", el.Path).Logger()

	if rule, ok := v.rules.Match(el.System); ok {
		row.Result = rule.Result
		row.Reason = rule.Reason
		log.Debug().Str("system", rule.URI).Msg("code system excluded")
		return row
	}

	if el.HasDisplay() && !el.HasCode() {
		row.Result = result.Error
		row.Reason = result.ReasonDisplayNoCode
		log.Error().Msg("display provided but code is missing")
		return row
	}

	out, err := v.call(ctx, deref(el.System), deref(el.Code))
	if err == nil && out == nil {
		err = errors.New("terminology provider returned no outcome")
	}
	if err != nil {
		row = classifyError(row, err)
		if isUnexpected(err) {
			ev := log.Error().Err(err).Str("coding", el.String())
			var pe *panicError
			if errors.As(err, &pe) {
				ev = ev.Object("recovered", pe)
			}
			ev.Msg("unexpected validation error")
		}
	} else {
		row = classifyOutcome(row, out)
	}

	log.Debug().
		Str("coding", el.String()).
		Str("result", row.Result.String()).
		Str("reason", row.Reason).
		Msg("validated")
	return row
}

// call invokes the provider and converts a panic into an error.
func (v *Validator) call(ctx context.Context, system, code string) (out *terminology.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return v.provider.ValidateCode(ctx, system, code)
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// MarshalZerologObject logs the panic value and stack.
func (e *panicError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("panic", fmt.Sprint(e.value)).Bytes("stack", e.stack)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
