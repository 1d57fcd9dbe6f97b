package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, raw []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

type countingRecorder struct {
	calls []string
}

func (r *countingRecorder) RecordExtract(strategy string, ok bool) {
	outcome := "miss"
	if ok {
		outcome = "hit"
	}
	r.calls = append(r.calls, strategy+":"+outcome)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		strategy string
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`, strategy: StrategyDirect},
		{name: "bare array with whitespace", input: "\n  [1, 2, 3]\n", want: `[1,2,3]`, strategy: StrategyDirect},
		{name: "scalar", input: `42`, want: `42`, strategy: StrategyDirect},
		{
			name:     "json fence",
			input:    "```json\n{\"title\":\"Go\"}\n```",
			want:     `{"title":"Go"}`,
			strategy: StrategyFence,
		},
		{
			name:     "untagged fence with prose",
			input:    "Sure! Here it is:\n```\n[{\"id\":1}]\n```\nHope this helps.",
			want:     `[{"id":1}]`,
			strategy: StrategyFence,
		},
		{
			name:     "uppercase tag",
			input:    "```JSON\n[true]\n```",
			want:     `[true]`,
			strategy: StrategyFence,
		},
		{
			name:     "inline tag",
			input:    "```json{\"a\":[1]}```",
			want:     `{"a":[1]}`,
			strategy: StrategyFence,
		},
		{
			name:     "later fence valid",
			input:    "```json\n{not valid}\n```\nor maybe\n```bash\nls -la\n```\nfinal:\n```json\n{\"ok\":true}\n```",
			want:     `{"ok":true}`,
			strategy: StrategyFence,
		},
		{
			name:     "unterminated fence",
			input:    "```json\n{\"a\":1}",
			want:     `{"a":1}`,
			strategy: StrategyFence,
		},
		{
			name:     "braces inside strings",
			input:    `Here you go: {"a":"{not json}"} thanks`,
			want:     `{"a":"{not json}"}`,
			strategy: StrategyBracket,
		},
		{
			name:     "escaped quotes and brackets",
			input:    `prefix {"a":"say \"}\" ok","b":["]",2]} suffix {"c":3}`,
			want:     `{"a":"say \"}\" ok","b":["]",2]}`,
			strategy: StrategyBracket,
		},
		{
			name:     "nested in prose",
			input:    "The roadmap: [{\"title\":\"A\",\"tasks\":[{\"t\":\"x\"}]}] -- enjoy",
			want:     `[{"title":"A","tasks":[{"t":"x"}]}]`,
			strategy: StrategyBracket,
		},
		{
			name:     "falls back to other opener",
			input:    `[draft] final answer {"a":1}`,
			want:     `{"a":1}`,
			strategy: StrategyBracket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			e := New(DefaultMaxInputBytes, PreferFirst, rec)
			got, err := e.Extract(tt.input)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(decode(t, got), decode(t, []byte(tt.want))) {
				t.Errorf("Extract() = %s, want %s", got, tt.want)
			}
			if len(rec.calls) != 1 || rec.calls[0] != tt.strategy+":hit" {
				t.Errorf("recorded %v, want [%s:hit]", rec.calls, tt.strategy)
			}
		})
	}
}

func TestExtractDirectIsExact(t *testing.T) {
	inputs := []string{
		`{"title":"Backend","milestones":[{"title":"SQL","tasks":[]}]}`,
		`[{"id":"1","title":"x {y} [z]"}]`,
		`"just a string"`,
		`null`,
	}
	var e Extractor
	for _, in := range inputs {
		got, err := e.Extract(in)
		if err != nil {
			t.Fatalf("Extract(%s): %v", in, err)
		}
		if string(got) != in {
			t.Errorf("Extract(%s) = %s, want identical", in, got)
		}
	}
}

func TestExtractFenceMatchesParse(t *testing.T) {
	payload := `{"a":{"b":[1,2,{"c":"}"}]}}`
	var e Extractor
	got, err := e.Extract("```json\n" + payload + "\n```")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decode(t, got), decode(t, []byte(payload))) {
		t.Errorf("got %s, want %s", got, payload)
	}
}

func TestExtractPrefer(t *testing.T) {
	input := `Summary {"note":1} and the list [1,2,3]`

	tests := []struct {
		prefer Prefer
		want   string
	}{
		{PreferFirst, `{"note":1}`},
		{PreferObject, `{"note":1}`},
		{PreferArray, `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(string(tt.prefer), func(t *testing.T) {
			got, err := New(0, tt.prefer, nil).Extract(input)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractParseError(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t ",
		"not json at all",
		"```\nstill not json\n```",
		`{"unterminated": [1, 2`,
		"{oops} and [nope]",
	}
	for _, in := range inputs {
		rec := &countingRecorder{}
		_, err := New(0, PreferFirst, rec).Extract(in)
		if !errors.Is(err, ErrParse) {
			t.Errorf("Extract(%q) error = %v, want ErrParse", in, err)
		}
		if len(rec.calls) != 1 || rec.calls[0] != StrategyNone+":miss" {
			t.Errorf("Extract(%q) recorded %v", in, rec.calls)
		}
	}
}

func TestExtractInputTooLarge(t *testing.T) {
	rec := &countingRecorder{}
	e := New(100, PreferFirst, rec)

	input := `"` + strings.Repeat("a", 99) + `"`
	_, err := e.Extract(input)

	var tooLarge *InputTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected InputTooLargeError, got %v", err)
	}
	if tooLarge.Size != 101 || tooLarge.Limit != 100 {
		t.Errorf("got size=%d limit=%d", tooLarge.Size, tooLarge.Limit)
	}
	if len(rec.calls) != 0 {
		t.Errorf("no attempt should be recorded, got %v", rec.calls)
	}
	if !IsExtractionError(err) {
		t.Error("IsExtractionError should be true")
	}

	if _, err := e.Extract(strings.Repeat(" ", 98) + "[]"); err != nil {
		t.Errorf("input at the limit should be accepted, got %v", err)
	}
}

func TestExtractDefaultLimit(t *testing.T) {
	var e *Extractor
	_, err := e.Extract(strings.Repeat("x", DefaultMaxInputBytes+1))
	var tooLarge *InputTooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Limit != DefaultMaxInputBytes {
		t.Fatalf("expected default limit, got %v", err)
	}
}

func TestExtractArrayAndObject(t *testing.T) {
	var e Extractor

	if _, err := e.ExtractArray("```json\n[1]\n```"); err != nil {
		t.Errorf("ExtractArray: %v", err)
	}
	if _, err := e.ExtractObject(`ok: {"a":1}`); err != nil {
		t.Errorf("ExtractObject: %v", err)
	}

	_, err := e.ExtractArray(`{"a":1}`)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schema.Expected != KindArray || schema.Actual != KindObject {
		t.Errorf("got expected=%s actual=%s", schema.Expected, schema.Actual)
	}
	if errors.Is(err, ErrParse) {
		t.Error("SchemaError must be distinct from ErrParse")
	}

	_, err = e.ExtractObject("42")
	if !errors.As(err, &schema) || schema.Actual != KindNumber {
		t.Errorf("expected number SchemaError, got %v", err)
	}

	if _, err := e.ExtractObject("nothing here"); !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestDecodeObject(t *testing.T) {
	var e Extractor
	var out struct {
		DemandLevel string `json:"demandLevel"`
	}
	if err := e.DecodeObject("```json\n{\"demandLevel\":\"High\"}\n```", &out); err != nil {
		t.Fatal(err)
	}
	if out.DemandLevel != "High" {
		t.Errorf("DemandLevel = %q", out.DemandLevel)
	}

	err := e.DecodeObject(`{"demandLevel": 7}`, &out)
	if !IsExtractionError(err) {
		t.Errorf("type mismatch should be an extraction error, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		`{}`:      KindObject,
		` [1]`:    KindArray,
		`"s"`:     KindString,
		`-1.5`:    KindNumber,
		`true`:    KindBool,
		`false`:   KindBool,
		`null`:    KindNull,
		``:        KindMissing,
		"\n\t{} ": KindObject,
	}
	for in, want := range tests {
		if got := KindOf(json.RawMessage(in)); got != want {
			t.Errorf("KindOf(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMatchBalanced(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`{}`, 2},
		{`{"a":"}"}`, 9},
		{`[{"a":[1,2]},3] tail`, 15},
		{`{"a":"\\"}`, 10},
		{`{"open": [`, -1},
	}
	for _, tt := range tests {
		if got := matchBalanced(tt.in, 0); got != tt.want {
			t.Errorf("matchBalanced(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExtractMatchingSkipsRejectedCandidates(t *testing.T) {
	isObject := func(v json.RawMessage) bool { return KindOf(v) == KindObject }
	tests := []struct {
		name   string
		raw    string
		accept func(json.RawMessage) bool
		want   string
	}{
		{"citation before object", `Based on industry data [1], here is your plan: {"a":1}`, isObject, `{"a":1}`},
		{"array fence before object fence", "```json\n[1]\n```\nand\n```json\n{\"a\":1}\n```", isObject, `{"a":1}`},
		{"nothing accepted keeps first span", `see [1] and {"a":1}`, func(json.RawMessage) bool { return false }, `[1]`},
		{"nil accept keeps first span", `see [1] and {"a":1}`, nil, `[1]`},
		{"whole reply is returned as is", `[1]`, isObject, `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(0, PreferFirst, nil).ExtractMatching(tt.raw, tt.accept)
			if err != nil {
				t.Fatalf("ExtractMatching: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractObjectPastCitation(t *testing.T) {
	got, err := New(0, PreferFirst, nil).ExtractObject(`Per [2], the outlook is: {"marketOutlook":"Positive"}`)
	if err != nil {
		t.Fatalf("ExtractObject: %v", err)
	}
	if string(got) != `{"marketOutlook":"Positive"}` {
		t.Errorf("got %s", got)
	}
}

func TestDecodeObjectSchemaErrorKeepsJSONKinds(t *testing.T) {
	var out struct {
		DemandLevel string `json:"demandLevel"`
	}
	err := New(0, PreferFirst, nil).DecodeObject(`{"demandLevel": 7}`, &out)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schema.Expected != KindObject || schema.Actual != KindObject {
		t.Errorf("kinds must name JSON types, got expected=%s actual=%s", schema.Expected, schema.Actual)
	}
	if schema.Path != "demandLevel" {
		t.Errorf("path = %q", schema.Path)
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("decode cause should unwrap, got %v", err)
	}
}
