package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var anthropicLog = logger.New("llm:anthropic")

// AnthropicProvider adapts the Anthropic SDK to the Provider interface,
// grounded on the teacher pack's anthropicadapter pattern: always invoke
// through the streaming API and accumulate, since Anthropic requires
// streaming for any call that might exceed its non-streaming time budget.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider constructs a provider bound to apiKey.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))}
}

func (p *AnthropicProvider) buildParams(req Request) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.ModelID),
		MaxTokens: maxTokens,
		Messages:  convertAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertAnthropicTools(req.Tools)
	}
	return params
}

// Complete accumulates a streaming call into a single Response, matching
// the teacher's "always stream, accumulate" pattern.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	params := p.buildParams(req)
	stream := p.client.Messages.NewStreaming(ctx, params)

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			stream.Close()
			return Response{}, fmt.Errorf("llm: anthropic accumulate: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return Response{}, fmt.Errorf("llm: anthropic streaming: %w", err)
	}
	stream.Close()

	return convertAnthropicResponse(message), nil
}

// CompleteStream streams text deltas as they arrive, emitting a final
// Done chunk carrying the accumulated Response.
func (p *AnthropicProvider) CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	params := p.buildParams(req)
	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		message := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				anthropicLog.Printf("accumulate error: %v", err)
				return
			}
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
					out <- StreamChunk{TextDelta: text.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			anthropicLog.Printf("stream error: %v", err)
			return
		}
		resp := convertAnthropicResponse(message)
		out <- StreamChunk{Done: true, Response: &resp}
	}()
	return out, nil
}

func convertAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser, RoleToolResult:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		case RoleAssistant, RoleToolCall:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return out
}

func convertAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		properties, _ := t.InputSchema["properties"].(map[string]any)
		if properties == nil {
			properties = map[string]any{}
		}
		var required []string
		if req, ok := t.InputSchema["required"].([]string); ok {
			required = req
		}
		inputSchema := anthropic.ToolInputSchemaParam{Properties: properties, Required: required}
		tool := anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
		if tool.OfTool != nil {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, tool)
	}
	return out
}

func convertAnthropicResponse(message anthropic.Message) Response {
	resp := Response{StopReason: string(message.StopReason)}
	for _, block := range message.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += v.Text
		case anthropic.ToolUseBlock:
			var input map[string]any
			_ = json.Unmarshal(v.Input, &input)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: v.ID, Name: v.Name, Input: input})
		}
	}
	return resp
}
