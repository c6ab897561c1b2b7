// Package anthropic provides an implementation of model.Service using the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/model"
)

// Options configures the Anthropic service adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model            anthropic.Model
	Temperature      float64
	ParseTemperature float64
	MaxTokens        int64
	APIKey           string
}

// Service wraps the Anthropic Messages API behind the generic model.Service
// interface.
type Service struct {
	client *anthropic.Client
	opts   Options
}

// Compile-time interface assertion.
var _ model.Service = (*Service)(nil)

// NewService creates a new Anthropic service using the official client.
func NewService(optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Service{client: &client, opts: opts}
}

// NewServiceFromClient creates a new Anthropic service from an existing
// client.
func NewServiceFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:            anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:      0.7,
		ParseTemperature: 0.3,
		MaxTokens:        4096,
	}
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

// Info returns metadata describing this Anthropic service implementation.
func (s *Service) Info() model.Info {
	return model.Info{Name: string(s.opts.Model), Provider: "anthropic"}
}

func (s *Service) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return b.String(), nil
}
