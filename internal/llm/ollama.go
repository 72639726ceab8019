package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaProvider struct {
	client *http.Client
	url    string
	model  string
}

// NewOllamaProvider returns a text-only Provider backed by a local Ollama server.
func NewOllamaProvider(url, model string, client *http.Client) Provider {
	if client == nil {
		client = &http.Client{}
	}
	return &ollamaProvider{client: client, url: strings.TrimRight(url, "/"), model: model}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (p *ollamaProvider) GenerateText(ctx context.Context, prompt string) (TextReply, error) {
	body, err := json.Marshal(ollamaGenerateRequest{Model: p.model, Prompt: prompt, Stream: false})
	if err != nil {
		return TextReply{}, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return TextReply{}, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return TextReply{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return TextReply{}, fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return TextReply{}, fmt.Errorf("could not decode response: %w", err)
	}
	if genResp.Error != "" {
		return TextReply{}, fmt.Errorf("ollama error: %s", genResp.Error)
	}
	if genResp.Response == "" {
		return TextReply{}, ErrEmptyReply
	}
	return TextReply{Content: genResp.Response}, nil
}

func (p *ollamaProvider) GenerateImage(ctx context.Context, prompt string) (ImageReply, error) {
	return ImageReply{}, fmt.Errorf("ollama: %w", ErrUnsupported)
}
