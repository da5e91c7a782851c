package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var openaiLog = logger.New("llm:openai")

// OpenAIProvider adapts the OpenAI Go SDK (also used for any
// OpenAI-compatible endpoint) to the Provider interface, grounded on the
// teacher pack's openaiadapter conversion helpers.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider constructs a provider bound to apiKey. baseURL, when
// non-empty, points at an OpenAI-compatible endpoint instead of OpenAI's own.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

func (p *OpenAIProvider) buildParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.ModelID),
		Messages: convertOpenAIMessages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertOpenAITools(req.Tools)
	}
	return params
}

// Complete issues a non-streaming chat completion call.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	result, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return Response{}, fmt.Errorf("llm: openai completion: %w", err)
	}
	return convertOpenAIResponse(result), nil
}

// CompleteStream streams the response via server-sent chunks.
func (p *OpenAIProvider) CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(req))

	out := make(chan StreamChunk)
	go func() {
		defer close(out)

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				out <- StreamChunk{TextDelta: chunk.Choices[0].Delta.Content}
			}
		}
		if err := stream.Err(); err != nil {
			openaiLog.Printf("stream error: %v", err)
			return
		}
		resp := convertOpenAIResponse(&acc.ChatCompletion)
		out <- StreamChunk{Done: true, Response: &resp}
	}()
	return out, nil
}

func convertOpenAIMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(m.Text))
		case RoleAssistant, RoleToolCall:
			out = append(out, openai.AssistantMessage(m.Text))
		case RoleToolResult:
			if m.ToolResult != nil {
				out = append(out, openai.ToolMessage(m.ToolResult.Content, m.ToolResult.ToolCallID))
			}
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Text))
		}
	}
	return out
}

func convertOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: param.NewOpt(t.Description),
			Parameters:  shared.FunctionParameters(t.InputSchema),
		}))
	}
	return out
}

func convertOpenAIResponse(result *openai.ChatCompletion) Response {
	if len(result.Choices) == 0 {
		return Response{}
	}
	choice := result.Choices[0]
	resp := Response{Text: choice.Message.Content, StopReason: string(choice.FinishReason)}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	return resp
}
