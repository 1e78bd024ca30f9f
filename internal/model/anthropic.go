package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicMessagesClient captures the subset of the Anthropic SDK used by
// the adapter, satisfied by *sdk.MessageService so tests can substitute a
// fake.
type AnthropicMessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicOptions configures the default-provider adapter.
type AnthropicOptions struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// AnthropicClient implements Client on top of Anthropic's Messages API.
type AnthropicClient struct {
	msg   AnthropicMessagesClient
	model string
	maxTK int
	temp  float64
}

// NewAnthropicClient builds an adapter from an existing Messages client.
func NewAnthropicClient(msg AnthropicMessagesClient, opts AnthropicOptions) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("model: anthropic client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("model: anthropic default model is required")
	}
	return &AnthropicClient{msg: msg, model: opts.DefaultModel, maxTK: opts.MaxTokens, temp: opts.Temperature}, nil
}

// NewAnthropicClientFromAPIKey constructs an adapter using the default
// Anthropic HTTP client, authenticated with apiKey.
func NewAnthropicClientFromAPIKey(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("model: anthropic api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, AnthropicOptions{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Messages.New call and translates the
// response into the provider-agnostic Response shape.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("model: anthropic messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}

	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "user":
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "assistant":
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(msgs) == 0 {
		return Response{}, errors.New("model: anthropic at least one user/assistant message is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTK
	}
	if maxTokens <= 0 {
		return Response{}, errors.New("model: anthropic max tokens must be positive")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	temp := float64(req.Temperature)
	if temp <= 0 {
		temp = c.temp
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	if tools, err := encodeAnthropicTools(req.Tools); err != nil {
		return Response{}, err
	} else if len(tools) > 0 {
		params.Tools = tools
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		if isAnthropicRateLimited(err) {
			return Response{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return Response{}, fmt.Errorf("%w: anthropic messages.new: %w", ErrProvider, err)
	}
	return translateAnthropicResponse(msg), nil
}

func encodeAnthropicTools(defs []ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		schemaDoc, err := toAnthropicSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("model: anthropic tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schemaDoc, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func toAnthropicSchema(schema any) (sdk.ToolInputSchemaParam, error) {
	if schema == nil {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var raw json.RawMessage
	switch v := schema.(type) {
	case json.RawMessage:
		raw = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return sdk.ToolInputSchemaParam{}, err
		}
		raw = data
	}
	if len(raw) == 0 {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func isAnthropicRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func translateAnthropicResponse(msg *sdk.Message) Response {
	resp := Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				resp.Content += block.Text
			}
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{Name: block.Name, Payload: block.Input})
		}
	}
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.Usage = TokenUsage{
			InputTokens:  int(u.InputTokens),
			OutputTokens: int(u.OutputTokens),
			TotalTokens:  int(u.InputTokens + u.OutputTokens),
		}
	}
	return resp
}
