package extract

import (
	"bytes"
	"encoding/json"
)

// Kind names the top-level type of a JSON value.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBool    Kind = "boolean"
	KindNull    Kind = "null"
	KindMissing Kind = "missing"

	kindNonEmptyArray Kind = "non-empty array"
	kindEmptyArray    Kind = "empty array"
	kindContainer     Kind = "object or array"
)

// KindOf returns the top-level Kind of an already valid JSON value.
func KindOf(raw json.RawMessage) Kind {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return KindMissing
	}
	switch b[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	default:
		return KindNumber
	}
}

// RequireKind returns a *SchemaError unless raw has the expected top-level kind.
func RequireKind(raw json.RawMessage, want Kind) error {
	if got := KindOf(raw); got != want {
		return &SchemaError{Expected: want, Actual: got}
	}
	return nil
}

// RequireObjectElements returns a *SchemaError unless raw is an array with at
// least one object element. Arrays of scalars, such as a citation like [1],
// carry no steps.
func RequireObjectElements(raw json.RawMessage) error {
	if err := RequireKind(raw, KindArray); err != nil {
		return err
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return &SchemaError{Expected: kindNonEmptyArray, Actual: kindEmptyArray}
	}
	for _, el := range elems {
		if KindOf(el) == KindObject {
			return nil
		}
	}
	return &SchemaError{Path: "[0]", Expected: KindObject, Actual: KindOf(elems[0])}
}
