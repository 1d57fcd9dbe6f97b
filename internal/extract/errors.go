package extract

import (
	"errors"
	"fmt"
)

// ErrParse is returned when no JSON value can be recovered from the text.
var ErrParse = errors.New("could not parse AI response as JSON")

// InputTooLargeError is returned before any scan when the input exceeds the limit.
type InputTooLargeError struct {
	Size  int
	Limit int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("input of %d bytes exceeds maximum allowed length of %d bytes", e.Size, e.Limit)
}

// SchemaError is returned when the recovered JSON has the wrong shape.
type SchemaError struct {
	Path     string // empty for the top-level value
	Expected Kind
	Actual   Kind
	Err      error // decode failure when the kinds match but the fields do not
}

func (e *SchemaError) Error() string {
	where := "top-level value"
	if e.Path != "" {
		where = e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("unexpected JSON shape: %s: %v", where, e.Err)
	}
	return fmt.Sprintf("unexpected JSON shape: %s: expected %s, got %s", where, e.Expected, e.Actual)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsExtractionError reports whether err came from extraction or shape checks.
func IsExtractionError(err error) bool {
	if errors.Is(err, ErrParse) {
		return true
	}
	var tooLarge *InputTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}
	var schema *SchemaError
	return errors.As(err, &schema)
}
