package ai

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleTool      = openai.ChatMessageRoleTool
)

// ToolChoiceNone forbids the model from calling tools on that request.
const ToolChoiceNone = "none"

type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ChatRequest is one model invocation. Nil Temperature/TopP fall back to the
// client defaults.
type ChatRequest struct {
	Messages    []Message
	Tools       []Tool
	ToolChoice  string
	Temperature *float32
	TopP        *float32
}

// Reply is either a FinalAnswer or a ToolRequest.
type Reply interface {
	isReply()
}

type FinalAnswer struct {
	Text string
}

// ToolRequest carries the calls the model wants executed. Text is whatever
// content the model sent alongside them, often empty.
type ToolRequest struct {
	Text  string
	Calls []ToolCall
}

func (FinalAnswer) isReply() {}
func (ToolRequest) isReply() {}

func (c *Client) Complete(ctx context.Context, req ChatRequest) (Reply, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request has no messages")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.ChatTimeout)
	defer cancel()

	apiReq := openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    toAPIMessages(req.Messages),
		Temperature: wireSampling(c.cfg.Temperature, req.Temperature),
		TopP:        wireSampling(c.cfg.TopP, req.TopP),
	}
	if len(req.Tools) > 0 {
		apiReq.Tools = toAPITools(req.Tools)
		if req.ToolChoice != "" {
			apiReq.ToolChoice = req.ToolChoice
		}
	}

	resp, err := c.api.CreateChatCompletion(callCtx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return ToolRequest{Text: msg.Content, Calls: calls}, nil
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return FinalAnswer{Text: msg.Content}, nil
}

func toAPIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		am := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, am)
	}
	return out
}

func toAPITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// wireSampling picks the request override over the client default. The API
// request drops zero values, so zero travels as the smallest positive float32.
func wireSampling(def, override *float32) float32 {
	v := *def
	if override != nil {
		v = *override
	}
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return v
}
