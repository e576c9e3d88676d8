// Package llm provides a client for interacting with Large Language Models.
// Any OpenAI-compatible chat completions endpoint can be used, including
// Gemini's OpenAI compatibility layer.
package llm

import (
	"context"
	"errors"
	"fmt"

	"meslek-atlasi/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answers without any choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// Client is a text-completion capability: prompt in, text out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

type openaiClient struct {
	model  string
	gen    GenerationParams
	client *openai.Client
}

// NewClient creates a client bound to the given model name. An empty model
// falls back to cfg.Model.
func NewClient(cfg config.LLMConfig, model string) Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if model == "" {
		model = cfg.Model
	}
	return &openaiClient{
		model:  model,
		gen:    buildGenerationParams(cfg.Generation),
		client: openai.NewClientWithConfig(oc),
	}
}

// Generate sends the prompt as a single user message and returns the text of
// the first choice verbatim.
func (c *openaiClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if c.gen.Temperature != nil {
		req.Temperature = *c.gen.Temperature
	}
	if c.gen.TopP != nil {
		req.TopP = *c.gen.TopP
	}
	if c.gen.MaxTokens != nil {
		req.MaxTokens = *c.gen.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api (model %s): %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// buildGenerationParams 仅注入配置中的非零值
func buildGenerationParams(cfg config.LLMGenerationConfig) GenerationParams {
	var gp GenerationParams
	if cfg.Temperature != 0 {
		t := float32(cfg.Temperature)
		gp.Temperature = &t
	}
	if cfg.TopP != 0 {
		p := float32(cfg.TopP)
		gp.TopP = &p
	}
	if cfg.MaxTokens != 0 {
		m := cfg.MaxTokens
		gp.MaxTokens = &m
	}
	return gp
}
