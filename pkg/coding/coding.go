// Package coding recognises Coding and CodeableConcept shaped nodes in a
// schema-free resource tree and extracts the coded values they carry.
//
// Detection is structural: a node is a Coding when the last segment of its
// path is coding[n], regardless of the resource type around it.
package coding

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/txaudit/pkg/document"
	"github.com/gofhir/txaudit/pkg/path"
	"github.com/gofhir/txaudit/pkg/result"
)

var codingSegment = regexp.MustCompile(`(?i)coding\[\d+\]$`)

// IsCodingPath reports whether the node at p is a Coding.
func IsCodingPath(p string) bool {
	if p == "" {
		return false
	}
	return codingSegment.MatchString(path.Last(p))
}

// IsCodeableConcept reports whether node has a coding member holding an array.
func IsCodeableConcept(node *document.Object) bool {
	v, ok := node.Get("coding")
	if !ok {
		return false
	}
	_, ok = v.([]any)
	return ok
}

// Codings returns the coding array of a CodeableConcept shaped node.
func Codings(node *document.Object) []any {
	v, _ := node.Get("coding")
	items, _ := v.([]any)
	return items
}

// Text returns the text member of node when it is a non-empty value.
func Text(node *document.Object) *string {
	return field(node, "text")
}

// Element is one candidate Coding found in a resource.
type Element struct {
	r4.Coding

	// ResourceID is the id of the owning resource.
	ResourceID string

	// Path is the structural path of the Coding.
	Path string

	// TextContext is the text of the enclosing CodeableConcept, if any.
	TextContext *string
}

// Extract builds an Element from a Coding shaped node.
func Extract(node *document.Object, resourceID, p string, textContext *string) Element {
	return Element{
		Coding: r4.Coding{
			System:  field(node, "system"),
			Version: field(node, "version"),
			Code:    field(node, "code"),
			Display: field(node, "display"),
		},
		ResourceID:  resourceID,
		Path:        p,
		TextContext: textContext,
	}
}

// HasSystem reports whether the element carries a system.
func (e Element) HasSystem() bool { return present(e.System) }

// HasCode reports whether the element carries a code.
func (e Element) HasCode() bool { return present(e.Code) }

// HasDisplay reports whether the element carries a display.
func (e Element) HasDisplay() bool { return present(e.Display) }

// Anomaly returns the structural diagnostic for a Coding whose display is not
// backed by a system and code. Conditions are checked in precedence order and
// only the first match is reported.
func (e Element) Anomaly() (string, bool) {
	if !e.HasDisplay() {
		return "", false
	}
	switch {
	case !e.HasSystem() && !e.HasCode():
		return result.ReasonDisplayNoCodeNoSystem, true
	case !e.HasSystem():
		return result.ReasonDisplayNoSystem, true
	case !e.HasCode():
		return result.ReasonDisplayNoCode, true
	}
	return "", false
}

// String renders the element as system|code.
func (e Element) String() string {
	return fmt.Sprintf("%s|%s", deref(e.System), deref(e.Code))
}

// field returns a member as text. Strings are taken as is and other scalars
// use their JSON spelling; null and empty values count as absent.
func field(node *document.Object, key string) *string {
	v, ok := node.Get(key)
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case *document.Object:
		if t.Len() == 0 {
			return nil
		}
		raw, err := json.Marshal(t.Map())
		if err != nil {
			return nil
		}
		s = string(raw)
	case []any:
		if len(t) == 0 {
			return nil
		}
		raw, err := json.Marshal(plainSlice(t))
		if err != nil {
			return nil
		}
		s = string(raw)
	default:
		s = fmt.Sprint(t)
	}
	if s == "" {
		return nil
	}
	return &s
}

func plainSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if obj, ok := item.(*document.Object); ok {
			out[i] = obj.Map()
			continue
		}
		if nested, ok := item.([]any); ok {
			out[i] = plainSlice(nested)
			continue
		}
		out[i] = item
	}
	return out
}

func present(s *string) bool {
	return s != nil && *s != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
