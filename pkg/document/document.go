// Package document decodes FHIR resource instances into an order-preserving
// tree of objects, arrays and scalars.
//
// Objects decode to *Object, arrays to []any, strings to string, numbers to
// json.Number (the literal text), booleans to bool and null to nil.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// Defaults used when a resource lacks resourceType or id.
const (
	UnknownType = "UnknownType"
	UnknownID   = "UnknownID"
)

// ErrInvalidJSON is returned when the input is not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// ErrNotObject is returned when the top-level JSON value is not an object.
var ErrNotObject = errors.New("resource is not a JSON object")

// Document is one parsed resource file.
type Document struct {
	// File is the base name of the source file.
	File string

	// ResourceType is the resourceType member, or UnknownType.
	ResourceType string

	// ResourceID is the id member, or UnknownID.
	ResourceID string

	// Root is the decoded resource.
	Root *Object
}

// Parse decodes a resource file.
func Parse(file string, data []byte) (*Document, error) {
	root, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*Object)
	if !ok {
		return nil, ErrNotObject
	}

	doc := &Document{
		File:         file,
		ResourceType: UnknownType,
		ResourceID:   UnknownID,
		Root:         obj,
	}
	if rt, ok := obj.String("resourceType"); ok && rt != "" {
		doc.ResourceType = rt
	}
	if id, ok := obj.String("id"); ok && id != "" {
		doc.ResourceID = id
	}
	return doc, nil
}

// Decode decodes any JSON value into the ordered tree representation.
func Decode(data []byte) (any, error) {
	// jsonparser is lenient about trailing garbage and some malformed input,
	// so well-formedness is checked up front.
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return decodeValue(value, dataType)
}

func decodeValue(raw []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Object:
		return decodeObject(raw)
	case jsonparser.Array:
		return decodeArray(raw)
	case jsonparser.String:
		return jsonparser.ParseString(raw)
	case jsonparser.Number:
		return json.Number(string(raw)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(raw)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unexpected value %q", ErrInvalidJSON, raw)
	}
}

func decodeObject(raw []byte) (*Object, error) {
	obj := NewObject()
	err := jsonparser.ObjectEach(raw, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		v, err := decodeValue(value, dataType)
		if err != nil {
			return err
		}
		obj.Set(string(key), v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(raw []byte) ([]any, error) {
	items := make([]any, 0)
	var firstErr error
	_, err := jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		if err != nil {
			firstErr = err
			return
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			firstErr = err
			return
		}
		items = append(items, v)
	})
	if err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return items, nil
}
