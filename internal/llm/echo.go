package llm

import (
	"context"
	"net/url"
)

// EchoProvider answers without any network access. It backs local runs and tests.
type EchoProvider struct{}

func (EchoProvider) GenerateText(ctx context.Context, prompt string) (TextReply, error) {
	if err := ctx.Err(); err != nil {
		return TextReply{}, err
	}
	return TextReply{Content: "You said: " + prompt}, nil
}

func (EchoProvider) GenerateImage(ctx context.Context, prompt string) (ImageReply, error) {
	if err := ctx.Err(); err != nil {
		return ImageReply{}, err
	}
	return ImageReply{URL: "https://placehold.co/1024x1024?text=" + url.QueryEscape(prompt)}, nil
}
