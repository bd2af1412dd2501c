package insights

import (
	"context"
	"errors"
)

// ErrDisabled means no insights backend is configured. Callers treat it as
// "feature off", not a failure.
var ErrDisabled = errors.New("insights: no provider configured")

// Provider produces a natural-language insight for a prompt. Implementations
// own their transport and model selection.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Disabled is the provider used when no API key is present.
type Disabled struct{}

func (Disabled) Complete(ctx context.Context, prompt string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Name() string { return "disabled" }
