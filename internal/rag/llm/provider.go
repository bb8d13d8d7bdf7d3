package llm

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Provider sends a fully rendered prompt and returns the completion text.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
