package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults point at Google's OpenAI-compatible endpoint.
const (
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultTextModel     = "gemini-2.0-flash"
	DefaultImageModel    = "dall-e-2"
	DefaultImageSize     = "1024x1024"
)

// OpenAIConfig configures an OpenAI-compatible REST provider.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	ImageSize  string
}

type openAIProvider struct {
	client openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider returns a Provider speaking the chat completions and image
// generation APIs. Empty config fields fall back to the defaults above.
func NewOpenAIProvider(cfg OpenAIConfig, httpClient *http.Client) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = DefaultImageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	// Retries belong to the caller; the breaker counts every failed call.
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &openAIProvider{client: openai.NewClient(opts...), cfg: cfg}
}

func (p *openAIProvider) GenerateText(ctx context.Context, prompt string) (TextReply, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.cfg.TextModel),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return TextReply{}, apiError(err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return TextReply{}, ErrEmptyReply
	}
	return TextReply{Content: completion.Choices[0].Message.Content}, nil
}

func (p *openAIProvider) GenerateImage(ctx context.Context, prompt string) (ImageReply, error) {
	resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  openai.ImageModel(p.cfg.ImageModel),
		Prompt: prompt,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(p.cfg.ImageSize),
	})
	if err != nil {
		return ImageReply{}, apiError(err)
	}
	if len(resp.Data) == 0 {
		return ImageReply{}, ErrEmptyReply
	}
	switch d := resp.Data[0]; {
	case d.URL != "":
		return ImageReply{URL: d.URL}, nil
	case d.B64JSON != "":
		return ImageReply{URL: "data:image/png;base64," + d.B64JSON}, nil
	default:
		return ImageReply{}, ErrEmptyReply
	}
}

// apiError flattens the SDK's error into status and message and keeps
// transport errors such as context cancellation unwrappable.
func apiError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("api returned status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("api returned status %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("http request failed: %w", err)
}
