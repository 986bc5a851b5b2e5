package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

type geminiGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient uses the Gemini API with function declarations.
type GeminiClient struct {
	models     geminiGenerator
	model      string
	maxTokens  int
	maxRetries int
	logger     *zap.Logger

	backoffFactory func() backoff.BackOff
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = &cfg.Timeout
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		models:     client.Models,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		logger:     logger.Named("llm.gemini"),
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Reply, error) {
	contents, err := toGeminiContents(req.Messages)
	if err != nil {
		return nil, err
	}
	genCfg := c.buildConfig(req)

	var resp *genai.GenerateContentResponse
	start := time.Now()
	err = retry(ctx, c.backoffFactory, c.maxRetries, c.logger, func() error {
		var err error
		resp, err = c.models.GenerateContent(ctx, c.model, contents, genCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini API returned no candidates")
	}

	c.logger.Debug("LLM generation complete (Gemini)",
		zap.Duration("duration", time.Since(start)),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
	)

	reply := &Reply{}
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return nil, fmt.Errorf("encode function call args: %w", err)
			}
			id := fc.ID
			if id == "" {
				id = uuid.NewString()
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	reply.Text = strings.Join(texts, "")
	return reply, nil
}

// buildConfig puts the verdict schema into the system instruction, since the
// Gemini API rejects a JSON response MIME type together with function calling.
func (c *GeminiClient) buildConfig(req Request) *genai.GenerateContentConfig {
	system := req.System
	if req.Verdict != nil {
		system += "\n\n" + verdictInstruction(*req.Verdict)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   int32(c.maxTokens),
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, s := range req.Tools {
			params := s.Parameters
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 s.Name,
				Description:          s.Description,
				ParametersJsonSchema: &params,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

func toGeminiContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))

		case RoleAssistant:
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("decode arguments of %s: %w", tc.Name, err)
					}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		case RoleTool:
			var parts, images []*genai.Part
			for _, r := range m.ToolResults {
				response := map[string]any{"output": r.Text}
				if r.IsError {
					response = map[string]any{"error": r.Text}
				}
				if r.Image != nil {
					response = map[string]any{"output": "Screenshot attached."}
					images = append(images, &genai.Part{InlineData: &genai.Blob{MIMEType: r.MIMEType, Data: r.Image}})
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: r.CallID, Name: r.Name, Response: response}})
			}
			contents = append(contents, genai.NewContentFromParts(append(parts, images...), genai.RoleUser))
		}
	}
	return contents, nil
}
