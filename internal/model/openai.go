package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIChatClient captures the subset of the openai-go client used by the
// adapter, satisfied by *openai.Client so tests can substitute a fake.
type OpenAIChatClient interface {
	ChatCompletionNew(ctx context.Context, body openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openaiClientAdapter struct{ c *openai.Client }

func (a openaiClientAdapter) ChatCompletionNew(ctx context.Context, body openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return a.c.Chat.Completions.New(ctx, body)
}

// OpenAIOptions configures the alternate-provider adapter selected by
// config.Config.ModelProvider.
type OpenAIOptions struct {
	DefaultModel string
}

// OpenAIClient implements Client via OpenAI Chat Completions, the
// config-selected alternate to AnthropicClient.
type OpenAIClient struct {
	chat  OpenAIChatClient
	model string
}

// NewOpenAIClient builds an adapter from an existing chat-completions
// client.
func NewOpenAIClient(chat OpenAIChatClient, opts OpenAIOptions) (*OpenAIClient, error) {
	if chat == nil {
		return nil, errors.New("model: openai client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("model: openai default model is required")
	}
	return &OpenAIClient{chat: chat, model: opts.DefaultModel}, nil
}

// NewOpenAIClientFromAPIKey constructs an adapter using the default openai-go
// HTTP client, authenticated with apiKey.
func NewOpenAIClientFromAPIKey(apiKey, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("model: openai api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIClient(openaiClientAdapter{c: &c}, OpenAIOptions{DefaultModel: defaultModel})
}

// Complete renders a chat completion using the configured OpenAI client.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("model: openai messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}

	tools, err := encodeOpenAITools(req.Tools)
	if err != nil {
		return Response{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: messages,
		Tools:    tools,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.chat.ChatCompletionNew(ctx, params)
	if err != nil {
		if isOpenAIRateLimited(err) {
			return Response{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return Response{}, fmt.Errorf("%w: openai chat completion: %w", ErrProvider, err)
	}
	return translateOpenAIResponse(completion), nil
}

func encodeOpenAITools(defs []ToolDefinition) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		params, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("model: marshal openai tool %q schema: %w", def.Name, err)
		}
		var schema map[string]any
		if err := json.Unmarshal(params, &schema); err != nil {
			return nil, fmt.Errorf("model: decode openai tool %q schema: %w", def.Name, err)
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  schema,
		}))
	}
	return out, nil
}

func isOpenAIRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func translateOpenAIResponse(resp *openai.ChatCompletion) Response {
	out := Response{}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.StopReason = choice.FinishReason
	for _, tc := range choice.Message.ToolCalls {
		var payload any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &payload)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Payload: payload})
	}
	out.Usage = TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	return out
}
