package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/pkg/anthropic"
)

// anthropicProvider adapts the Messages API.
type anthropicProvider struct {
	name   string
	model  string
	client anthropic.Client
}

func newAnthropicProvider(name, modelName, apiKey, baseURL string) *anthropicProvider {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicProvider{
		name:   name,
		model:  modelName,
		client: anthropic.NewClient(apiKey, opts...),
	}
}

func (p *anthropicProvider) Name() string { return p.name }

func (p *anthropicProvider) Complete(ctx context.Context, c Completion) (*Response, error) {
	temp := c.Temperature
	req := anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   c.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: c.Prompt}},
		Temperature: &temp,
	}
	if c.System != "" {
		req.System = anthropic.CachedSystemBlocks(c.System)
	}

	resp, err := p.client.CreateMessage(ctx, req)
	if err != nil {
		if status, header, ok := anthropic.APIError(err); ok {
			return nil, classify(p.name, err, status, header)
		}
		return nil, err
	}

	in := resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens
	return &Response{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: model.Usage{
			Requests:         1,
			PromptTokens:     in,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      in + resp.Usage.OutputTokens,
		},
	}, nil
}
