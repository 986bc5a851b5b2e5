package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

const anthropicBedrockVersion = "bedrock-2023-05-31"

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient calls Anthropic Claude models on AWS Bedrock using the
// Messages request body with tool use.
type BedrockClient struct {
	client    bedrockInvoker
	modelID   string
	maxTokens int
	logger    *zap.Logger
}

// NewBedrockClient loads AWS configuration for cfg.Region. Throttling and
// server errors are retried by the SDK's standard retryer.
func NewBedrockClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*BedrockClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries+1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm.bedrock"),
	}, nil
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
	Tools            []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   []anthropicBlock `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`

	// image
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *BedrockClient) Generate(ctx context.Context, req Request) (*Reply, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, errors.New("no content in response")
	}

	c.logger.Debug("LLM generation complete (Bedrock)",
		zap.String("stop_reason", resp.StopReason),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	reply := &Reply{}
	var texts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		}
	}
	reply.Text = strings.Join(texts, "\n")
	return reply, nil
}

func (c *BedrockClient) buildRequest(req Request) anthropicRequest {
	system := req.System
	if req.Verdict != nil {
		system += "\n\n" + verdictInstruction(*req.Verdict)
	}

	out := anthropicRequest{
		AnthropicVersion: anthropicBedrockVersion,
		MaxTokens:        c.maxTokens,
		System:           system,
	}
	for _, s := range req.Tools {
		params := s.Parameters
		out.Tools = append(out.Tools, anthropicTool{Name: s.Name, Description: s.Description, InputSchema: &params})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			out.Messages = append(out.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: m.Text}},
			})

		case RoleAssistant:
			var blocks []anthropicBlock
			if strings.TrimSpace(m.Text) != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			out.Messages = append(out.Messages, anthropicMessage{Role: "assistant", Content: blocks})

		case RoleTool:
			blocks := make([]anthropicBlock, 0, len(m.ToolResults))
			for _, r := range m.ToolResults {
				blocks = append(blocks, anthropicBlock{
					Type:      "tool_result",
					ToolUseID: r.CallID,
					Content:   []anthropicBlock{resultBlock(r)},
					IsError:   r.IsError,
				})
			}
			out.Messages = append(out.Messages, anthropicMessage{Role: "user", Content: blocks})
		}
	}
	return out
}

func resultBlock(r ToolResult) anthropicBlock {
	if r.Image != nil {
		return anthropicBlock{Type: "image", Source: &anthropicImageSource{
			Type:      "base64",
			MediaType: r.MIMEType,
			Data:      base64.StdEncoding.EncodeToString(r.Image),
		}}
	}
	text := r.Text
	if text == "" {
		text = "(no output)"
	}
	return anthropicBlock{Type: "text", Text: text}
}
