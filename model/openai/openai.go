// Package openai provides an implementation of model.Service using the
// OpenAI Chat Completions API. It renders the planning prompt, requests a
// single non-streaming completion and decodes the JSON plan from the
// response.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/model"
)

// Options configure the OpenAI service adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	ParseTemperature    float64
	MaxCompletionTokens int64
}

// Service wraps the OpenAI Chat Completions API behind the generic
// model.Service interface.
type Service struct {
	client *openai.Client
	opts   Options
}

// Compile-time interface assertion.
var _ model.Service = (*Service)(nil)

// NewService creates a new OpenAI service using the official client.
func NewService(optFns ...func(o *Options)) *Service {
	client := openai.NewClient()
	return NewServiceFromClient(&client, optFns...)
}

// NewServiceFromClient creates a new OpenAI service from an existing client.
func NewServiceFromClient(client *openai.Client, optFns ...func(o *Options)) *Service {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		ParseTemperature:    0.3,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{client: client, opts: opts}
}

// GeneratePlan implements model.Service.
func (s *Service) GeneratePlan(ctx context.Context, goal, capabilities, memoryContext string) (*core.Plan, error) {
	prompt := model.BuildPlanPrompt(goal, capabilities, memoryContext)

	content, err := s.complete(ctx, prompt, s.opts.Temperature)
	if err != nil {
		return nil, err
	}
	return model.ExtractPlan(content)
}

// ParseNaturalLanguage implements model.Service.
func (s *Service) ParseNaturalLanguage(ctx context.Context, text string, schema map[string]any) (map[string]any, error) {
	prompt := model.BuildParsePrompt(text, schema)

	content, err := s.complete(ctx, prompt, s.opts.ParseTemperature)
	if err != nil {
		return nil, err
	}
	return model.ExtractStructured(content)
}

// Info returns metadata describing this OpenAI service implementation.
func (s *Service) Info() model.Info {
	return model.Info{Name: s.opts.Model, Provider: "openai"}
}

func (s *Service) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
