package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// BedrockRuntimeClient mirrors the subset of the AWS Bedrock runtime client
// used by the adapter; satisfied by *bedrockruntime.Client.
type BedrockRuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockOptions configures the Bedrock Converse adapter, the deployment
// option for operators who run this inside AWS rather than calling
// Anthropic/OpenAI directly.
type BedrockOptions struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// BedrockClient implements Client on top of the AWS Bedrock Converse API.
type BedrockClient struct {
	runtime BedrockRuntimeClient
	model   string
	maxTK   int
	temp    float32
}

// NewBedrockClient builds an adapter from an existing Bedrock runtime client.
func NewBedrockClient(runtime BedrockRuntimeClient, opts BedrockOptions) (*BedrockClient, error) {
	if runtime == nil {
		return nil, errors.New("model: bedrock runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("model: bedrock default model is required")
	}
	return &BedrockClient{runtime: runtime, model: opts.DefaultModel, maxTK: opts.MaxTokens, temp: opts.Temperature}, nil
}

// Complete issues a Converse request and translates the response.
func (c *BedrockClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("model: bedrock messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.model
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		var role brtypes.ConversationRole
		switch m.Role {
		case "user":
			role = brtypes.ConversationRoleUser
		case "assistant":
			role = brtypes.ConversationRoleAssistant
		default:
			continue
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	if len(messages) == 0 {
		return Response{}, errors.New("model: bedrock at least one user/assistant message is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTK
	}
	temp := req.Temperature
	if temp <= 0 {
		temp = c.temp
	}
	if maxTokens > 0 || temp > 0 {
		cfg := &brtypes.InferenceConfiguration{}
		if maxTokens > 0 {
			cfg.MaxTokens = aws.Int32(int32(maxTokens))
		}
		if temp > 0 {
			cfg.Temperature = aws.Float32(temp)
		}
		input.InferenceConfig = cfg
	}

	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		if isBedrockRateLimited(err) {
			return Response{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return Response{}, fmt.Errorf("%w: bedrock converse: %w", ErrProvider, err)
	}
	return translateBedrockResponse(output), nil
}

func isBedrockRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	var throttled *brtypes.ThrottlingException
	return errors.As(err, &throttled)
}

func translateBedrockResponse(out *bedrockruntime.ConverseOutput) Response {
	resp := Response{}
	if out == nil {
		return resp
	}
	resp.StopReason = string(out.StopReason)
	if msgOutput, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			switch b := block.(type) {
			case *brtypes.ContentBlockMemberText:
				resp.Content += b.Value
			case *brtypes.ContentBlockMemberToolUse:
				if b.Value.Name != nil {
					resp.ToolCalls = append(resp.ToolCalls, ToolCall{Name: *b.Value.Name, Payload: b.Value.Input})
				}
			}
		}
	}
	if out.Usage != nil {
		in, outTok := int(aws.ToInt32(out.Usage.InputTokens)), int(aws.ToInt32(out.Usage.OutputTokens))
		resp.Usage = TokenUsage{InputTokens: in, OutputTokens: outTok, TotalTokens: in + outTok}
	}
	return resp
}
