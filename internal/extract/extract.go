// Package extract recovers a single well-formed JSON value from the free-form
// text returned by a text-generation model, and normalizes the recovered
// payloads into roadmap specs.
//
// Attempts run in a fixed order and the first success wins: the whole input,
// each fenced code block in order of appearance, then one balanced-bracket
// span per opener kind. The input is rejected up front when it exceeds the
// configured size, so the scan cost is linear in a bounded input.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// DefaultMaxInputBytes bounds the text accepted by Extract.
const DefaultMaxInputBytes = 100_000

// Prefer selects which opener the bracket fallback tries first.
type Prefer string

const (
	PreferFirst  Prefer = "first"
	PreferObject Prefer = "object"
	PreferArray  Prefer = "array"
)

// Strategy names used when reporting attempts.
const (
	StrategyDirect  = "direct"
	StrategyFence   = "fence"
	StrategyBracket = "bracket"
	StrategyNone    = "none"
)

// Recorder observes the outcome of each Extract call.
type Recorder interface {
	RecordExtract(strategy string, ok bool)
}

// Extractor recovers JSON from model output. The zero value uses the defaults.
type Extractor struct {
	MaxInputBytes int
	Prefer        Prefer
	Recorder      Recorder
}

// New returns an Extractor with the given limit and opener preference.
// Non-positive limits fall back to DefaultMaxInputBytes.
func New(maxInputBytes int, prefer Prefer, rec Recorder) *Extractor {
	return &Extractor{MaxInputBytes: maxInputBytes, Prefer: prefer, Recorder: rec}
}

func (e *Extractor) limit() int {
	if e == nil || e.MaxInputBytes <= 0 {
		return DefaultMaxInputBytes
	}
	return e.MaxInputBytes
}

// Extract returns the first JSON value recoverable from raw.
// It fails with *InputTooLargeError when raw exceeds the limit and with
// ErrParse when no attempt yields valid JSON.
func (e *Extractor) Extract(raw string) (json.RawMessage, error) {
	return e.ExtractMatching(raw, nil)
}

// ExtractMatching is Extract with a shape filter. Fenced blocks and bracket
// spans that parse but fail accept are passed over in favor of a later
// candidate; when no candidate is accepted the first valid one is returned so
// the caller can report its shape. A reply that is valid JSON as a whole is
// returned as is. A nil accept takes the first valid candidate.
func (e *Extractor) ExtractMatching(raw string, accept func(json.RawMessage) bool) (json.RawMessage, error) {
	if n := len(raw); n > e.limit() {
		return nil, &InputTooLargeError{Size: n, Limit: e.limit()}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		e.record(StrategyNone, false)
		return nil, ErrParse
	}

	if json.Valid([]byte(trimmed)) {
		e.record(StrategyDirect, true)
		return json.RawMessage(trimmed), nil
	}

	var (
		fallback json.RawMessage
		fallStep string
	)
	try := func(v json.RawMessage, strategy string) bool {
		if accept == nil || accept(v) {
			e.record(strategy, true)
			return true
		}
		if fallback == nil {
			fallback, fallStep = v, strategy
		}
		return false
	}

	for _, block := range fencedBlocks(trimmed) {
		if v, ok := parseBlock(block); ok && try(v, StrategyFence) {
			return v, nil
		}
	}

	var prefer Prefer
	if e != nil {
		prefer = e.Prefer
	}
	first, second := openerOrder(trimmed, prefer)
	for _, opener := range [2]byte{first, second} {
		if v, ok := bracketCandidate(trimmed, opener); ok && try(v, StrategyBracket) {
			return v, nil
		}
	}

	if fallback != nil {
		e.record(fallStep, true)
		return fallback, nil
	}
	e.record(StrategyNone, false)
	return nil, ErrParse
}

// ExtractArray extracts a JSON value and requires it to be an array.
func (e *Extractor) ExtractArray(raw string) (json.RawMessage, error) {
	return e.extractKind(raw, KindArray)
}

// ExtractObject extracts a JSON value and requires it to be an object.
func (e *Extractor) ExtractObject(raw string) (json.RawMessage, error) {
	return e.extractKind(raw, KindObject)
}

// DecodeObject extracts a JSON object from raw and unmarshals it into v.
func (e *Extractor) DecodeObject(raw string, v any) error {
	obj, err := e.ExtractObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return &SchemaError{Path: decodePath(err), Expected: KindObject, Actual: KindObject, Err: err}
	}
	return nil
}

// decodePath names the offending field of a decode error when json reports one.
func decodePath(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return te.Field
	}
	return ""
}

func (e *Extractor) extractKind(raw string, want Kind) (json.RawMessage, error) {
	v, err := e.ExtractMatching(raw, func(v json.RawMessage) bool { return KindOf(v) == want })
	if err != nil {
		return nil, err
	}
	if err := RequireKind(v, want); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Extractor) record(strategy string, ok bool) {
	if e != nil && e.Recorder != nil {
		e.Recorder.RecordExtract(strategy, ok)
	}
}
