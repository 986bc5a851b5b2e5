package llm

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation turn in provider-neutral form. A user message
// carries Text, an assistant message Text and/or ToolCalls, and a tool message
// the ToolResults of the preceding assistant turn in call order.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type ToolResult struct {
	CallID   string
	Name     string
	Text     string
	Image    []byte
	MIMEType string
	IsError  bool
}

type ToolSpec struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// Request is one model turn. Verdict, when set, is the schema the final
// non-tool reply must satisfy.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
	Verdict  *jsonschema.Definition
}

// Reply is the model's answer: tool calls to run, or final text.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is a tool-calling chat model.
type Model interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
}
