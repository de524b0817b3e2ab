package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
)

// openAIProvider speaks the OpenAI chat completions protocol. Gemini is
// served through the same client pointed at its compatible endpoint.
type openAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newOpenAIProvider(name, modelName, apiKey, baseURL string) *openAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{
		name:   name,
		model:  modelName,
		client: openai.NewClient(opts...),
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, c Completion) (*Response, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.System != "" {
		msgs = append(msgs, openai.SystemMessage(c.System))
	}
	msgs = append(msgs, openai.UserMessage(c.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(msgs),
		Model:       openai.F(p.model),
		Temperature: openai.F(c.Temperature),
	}
	if c.MaxTokens > 0 {
		params.MaxTokens = openai.F(c.MaxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		wrapped := eris.Wrapf(err, "llm: %s chat completion", p.name)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			var header http.Header
			if apiErr.Response != nil {
				header = apiErr.Response.Header
			}
			return nil, classify(p.name, wrapped, apiErr.StatusCode, header)
		}
		return nil, wrapped
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Errorf("llm: %s returned no choices", p.name)
	}

	return &Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: model.Usage{
			Requests:         1,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
