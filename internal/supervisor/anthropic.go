package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/internal/conversation"
	"github.com/deepresearch/pkg/models"
)

const providerName = "anthropic-compatible"

// AnthropicReasoner talks to an Anthropic Messages compatible endpoint
// (Anthropic itself, or MiniMax's /anthropic gateway).
type AnthropicReasoner struct {
	client         anthropic.Client
	model          string
	thinkingBudget int
}

// NewAnthropicReasoner builds a reasoner from the supervisor configuration.
// SDK retries are disabled; the supervisor owns the retry policy.
func NewAnthropicReasoner(cfg config.SupervisorConfig) (*AnthropicReasoner, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &models.ConfigError{Missing: []string{config.EnvSupervisorKey}}
	}
	if cfg.Model == "" {
		return nil, &models.ConfigError{Reason: "supervisor.model is required"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicReasoner{
		client:         anthropic.NewClient(opts...),
		model:          cfg.Model,
		thinkingBudget: cfg.ThinkingBudget,
	}, nil
}

// Reason sends the full conversation and converts the reply back into blocks
func (r *AnthropicReasoner) Reason(ctx context.Context, req Request) (*Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, t := range req.Turns {
		msg, err := toMessageParam(t)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, toToolParam(t))
	}
	if req.ToolChoiceNone && len(params.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}
	if r.thinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(r.thinkingBudget))
	}

	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, toProviderError(err)
	}

	resp := &Response{StopReason: string(msg.StopReason)}
	for _, b := range msg.Content {
		block, ok := fromContentBlock(b)
		if !ok {
			// not echoed back on the next call
			log.Warn().Str("type", b.Type).Str("message_id", msg.ID).Msg("Dropping unsupported content block")
			continue
		}
		resp.Blocks = append(resp.Blocks, block)
	}
	return resp, nil
}

func toMessageParam(t conversation.Turn) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		switch b.Kind {
		case conversation.KindThinking:
			blocks = append(blocks, anthropic.NewThinkingBlock(b.Signature, b.Thinking))
		case conversation.KindRedactedThinking:
			blocks = append(blocks, anthropic.NewRedactedThinkingBlock(b.Data))
		case conversation.KindText:
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		case conversation.KindToolUse:
			input := b.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
		case conversation.KindToolResult:
			blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
		default:
			return anthropic.MessageParam{}, fmt.Errorf("unsupported block kind %q", b.Kind)
		}
	}

	if t.Role == conversation.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}

func fromContentBlock(b anthropic.ContentBlockUnion) (conversation.Block, bool) {
	switch b.Type {
	case "thinking":
		return conversation.ThinkingBlock(b.Thinking, b.Signature), true
	case "redacted_thinking":
		return conversation.RedactedThinkingBlock(b.Data), true
	case "text":
		return conversation.TextBlock(b.Text), true
	case "tool_use":
		input := append(json.RawMessage(nil), b.Input...)
		return conversation.ToolUseBlock(b.ID, b.Name, input), true
	}
	return conversation.Block{}, false
}

func toToolParam(t ToolSpec) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{Properties: t.InputSchema["properties"]}
	if req, ok := t.InputSchema["required"].([]string); ok {
		schema.Required = req
	}
	tool := &anthropic.ToolParam{
		Name:        t.Name,
		InputSchema: schema,
	}
	if t.Description != "" {
		tool.Description = anthropic.String(t.Description)
	}
	return anthropic.ToolUnionParam{OfTool: tool}
}

func toProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	perr := &models.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		perr.Status = apiErr.StatusCode
	}
	return perr
}
