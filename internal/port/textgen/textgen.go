// Package textgen defines the port for the text-generation model.
package textgen

import "context"

// Generator sends a prompt to a text-generation model and returns its raw text.
// The text carries no format guarantee.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
