package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

// OpenAIClient talks to the chat completions API with function tools and a
// strict JSON schema for the final reply.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	maxTokens  int
	maxRetries int
	logger     *zap.Logger

	backoffFactory func() backoff.BackOff
}

// NewOpenAIClient builds a client from cfg.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		logger:     logger.Named("llm.openai"),
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Reply, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            toOpenAIMessages(req),
		Tools:               toOpenAITools(req.Tools),
		MaxCompletionTokens: c.maxTokens,
	}
	if len(chatReq.Tools) > 0 {
		chatReq.ParallelToolCalls = false
	}
	if req.Verdict != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   VerdictSchemaName,
				Schema: req.Verdict,
				Strict: true,
			},
		}
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := retry(ctx, c.backoffFactory, c.maxRetries, c.logger, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, chatReq)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices")
	}

	c.logger.Debug("LLM generation complete (OpenAI)",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	msg := resp.Choices[0].Message
	reply := &Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}
	return reply, nil
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		params := s.Parameters
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  &params,
			},
		})
	}
	return tools
}

// toOpenAIMessages flattens the conversation. Tool messages can only carry
// text, so screenshots follow the tool results as a user image message.
func toOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: req.System}}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text})

		case RoleAssistant:
			am := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text}
			for _, tc := range m.ToolCalls {
				am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			msgs = append(msgs, am)

		case RoleTool:
			var images []openai.ChatMessagePart
			for _, r := range m.ToolResults {
				content := r.Text
				if r.Image != nil {
					content = "Screenshot attached below."
					images = append(images, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Image),
							Detail: openai.ImageURLDetailAuto,
						},
					})
				}
				if r.IsError {
					content = "Error: " + content
				}
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: r.CallID,
				})
			}
			if len(images) > 0 {
				msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: images})
			}
		}
	}
	return msgs
}
