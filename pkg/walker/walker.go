// Package walker traverses a resource document depth first, finds every
// Coding, and turns each one (plus any structural anomaly) into audit rows.
//
// Traversal is schema free. A node is a Coding when its path ends in
// coding[n]; a node is a CodeableConcept when it has a coding array. The
// text of a CodeableConcept is handed down to the Codings in its coding
// array and to nothing else.
package walker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gofhir/txaudit/pkg/coding"
	"github.com/gofhir/txaudit/pkg/document"
	"github.com/gofhir/txaudit/pkg/path"
	"github.com/gofhir/txaudit/pkg/result"
	"github.com/gofhir/txaudit/pkg/worker"
)

// Checker validates one Coding.
type Checker interface {
	Check(ctx context.Context, file string, el coding.Element) result.ValidationResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, file string, el coding.Element) result.ValidationResult

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, file string, el coding.Element) result.ValidationResult {
	return f(ctx, file, el)
}

// Walker walks documents. It holds no per-walk state and is safe for
// concurrent use.
type Walker struct {
	checker Checker
	workers int
	logger  zerolog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithWorkers sets how many Codings of one document are checked at once.
func WithWorkers(n int) Option {
	return func(w *Walker) {
		if n < 1 {
			n = 1
		}
		w.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Walker) {
		w.logger = l
	}
}

// New creates a Walker that hands every Coding to checker.
func New(checker Checker, opts ...Option) *Walker {
	w := &Walker{
		checker: checker,
		workers: 1,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "walker").Logger()
	return w
}

// Walk returns the rows for doc in document order. The path of the root is
// the resource type.
func (w *Walker) Walk(ctx context.Context, doc *document.Document) []result.ValidationResult {
	p := &plan{file: doc.File, resourceID: doc.ResourceID}
	p.visit(doc.Root, doc.ResourceType, scope{})

	checked := worker.Ordered(ctx, w.workers, p.pending, func(ctx context.Context, _ int, el coding.Element) result.ValidationResult {
		return w.checker.Check(ctx, doc.File, el)
	})

	rows := make([]result.ValidationResult, len(p.slots))
	for i, s := range p.slots {
		if s.pending >= 0 {
			rows[i] = checked[s.pending]
		} else {
			rows[i] = s.row
		}
	}

	w.logger.Debug().
		Str("file", doc.File).
		Str("resource", doc.ResourceType+"/"+doc.ResourceID).
		Int("codings", len(p.pending)).
		Int("rows", len(rows)).
		Msg("walked")
	return rows
}

// scope is the context inherited from ancestors. It is passed by value and
// never modified.
type scope struct {
	text       *string
	parentIsCC bool
}

// textContext is the CodeableConcept text a Coding reports.
func (s scope) textContext() *string {
	if s.parentIsCC {
		return s.text
	}
	return nil
}

// slot is one output row: either ready or an index into plan.pending.
type slot struct {
	row     result.ValidationResult
	pending int
}

// plan records rows in traversal order. Codings are collected separately so
// they can be checked in parallel and slotted back by index.
type plan struct {
	file       string
	resourceID string
	slots      []slot
	pending    []coding.Element
}

func (p *plan) ready(row result.ValidationResult) {
	p.slots = append(p.slots, slot{row: row, pending: -1})
}

func (p *plan) check(el coding.Element) {
	p.slots = append(p.slots, slot{pending: len(p.pending)})
	p.pending = append(p.pending, el)
}

func (p *plan) visit(node any, at string, sc scope) {
	switch n := node.(type) {
	case *document.Object:
		p.visitObject(n, at, sc)
	case []any:
		for i, item := range n {
			p.visit(item, path.Item(at, i), sc)
		}
	}
}

func (p *plan) visitObject(node *document.Object, at string, sc scope) {
	isCoding := coding.IsCodingPath(at)
	if isCoding {
		el := coding.Extract(node, p.resourceID, at, sc.textContext())
		p.check(el)
		if reason, ok := el.Anomaly(); ok {
			p.ready(result.ValidationResult{
				File:            p.file,
				ResourceID:      p.resourceID,
				Path:            at,
				DisplayProvided: el.Display,
				TextContext:     el.TextContext,
				Result:          result.Error,
				Reason:          reason,
			})
		}
	}

	isCC := coding.IsCodeableConcept(node)
	text := coding.Text(node)
	if isCC && !isCoding && text != nil && len(coding.Codings(node)) == 0 {
		p.ready(result.ValidationResult{
			File:        p.file,
			ResourceID:  p.resourceID,
			Path:        at,
			TextContext: text,
			Result:      result.Info,
			Reason:      result.ReasonTextOnlyConcept,
		})
	}

	for _, key := range node.Keys() {
		value, _ := node.Get(key)
		child := path.Child(at, key)

		if key == "coding" && isCC {
			inner := scope{text: text, parentIsCC: true}
			for i, item := range coding.Codings(node) {
				p.visit(item, path.Item(child, i), inner)
			}
			continue
		}

		switch value.(type) {
		case *document.Object, []any:
			p.visit(value, child, sc)
		}
	}
}
