package llm

import (
	"context"
	"errors"
	"fmt"

	"quickgpt/backend/internal/model"
)

var (
	// ErrUnsupported is returned when a provider lacks the requested capability.
	ErrUnsupported = errors.New("llm: capability not supported by provider")
	// ErrEmptyReply is returned when the upstream answered without any content.
	ErrEmptyReply = errors.New("llm: upstream returned an empty reply")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("llm: upstream temporarily unavailable")
)

// Provider is the upstream model capability.
type Provider interface {
	GenerateText(ctx context.Context, prompt string) (TextReply, error)
	GenerateImage(ctx context.Context, prompt string) (ImageReply, error)
}

// Reply is either a TextReply or an ImageReply.
type Reply interface {
	isReply()
}

// TextReply is generated text.
type TextReply struct {
	Content string
}

// ImageReply is a URL pointing at a generated image.
type ImageReply struct {
	URL string
}

func (TextReply) isReply()  {}
func (ImageReply) isReply() {}

// Generate calls the capability selected by mode.
func Generate(ctx context.Context, p Provider, mode model.Mode, prompt string) (Reply, error) {
	switch mode {
	case model.ModeText:
		return p.GenerateText(ctx, prompt)
	case model.ModeImage:
		return p.GenerateImage(ctx, prompt)
	default:
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
}

// Composite routes text and image generation to separate providers.
type Composite struct {
	Text  Provider
	Image Provider
}

func (c *Composite) GenerateText(ctx context.Context, prompt string) (TextReply, error) {
	return c.Text.GenerateText(ctx, prompt)
}

func (c *Composite) GenerateImage(ctx context.Context, prompt string) (ImageReply, error) {
	return c.Image.GenerateImage(ctx, prompt)
}
