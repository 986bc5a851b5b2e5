package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, cfg)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

func newTestGeminiClient(m *mockGemini) *GeminiClient {
	return &GeminiClient{
		models:         m,
		model:          "gemini-2.5-flash",
		maxTokens:      512,
		maxRetries:     2,
		logger:         zap.NewNop(),
		backoffFactory: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) },
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	m := new(mockGemini)
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
			{FunctionCall: &genai.FunctionCall{Name: "typeIntoInput", Args: map[string]any{"inputName": "email", "text": "a@b.com"}}},
		}},
	}}}
	m.On("GenerateContent", mock.Anything, "gemini-2.5-flash", mock.Anything, mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
		return len(cfg.Tools) == 1 && len(cfg.Tools[0].FunctionDeclarations) == 1 && cfg.MaxOutputTokens == 512
	})).Return(resp, nil).Once()

	reply, err := newTestGeminiClient(m).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	m.AssertExpectations(t)

	require.Len(t, reply.ToolCalls, 1)
	call := reply.ToolCalls[0]
	assert.NotEmpty(t, call.ID, "missing call IDs are filled in")
	assert.Equal(t, "typeIntoInput", call.Name)
	assert.JSONEq(t, `{"inputName":"email","text":"a@b.com"}`, string(call.Arguments))
}

func TestGeminiClient_RetriesServerError(t *testing.T) {
	m := new(mockGemini)
	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: `{"success":true,"reason":"done"}`}}},
	}}}
	m.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, genai.APIError{Code: 503, Status: "UNAVAILABLE"}).Once()
	m.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(ok, nil).Once()

	reply, err := newTestGeminiClient(m).Generate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"success":true,"reason":"done"}`, reply.Text)
	m.AssertNumberOfCalls(t, "GenerateContent", 2)
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	m := new(mockGemini)
	m.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&genai.GenerateContentResponse{}, nil).Once()

	_, err := newTestGeminiClient(m).Generate(context.Background(), sampleRequest())
	assert.Error(t, err)
}

func TestToGeminiContents(t *testing.T) {
	contents, err := toGeminiContents([]Message{
		{Role: RoleUser, Text: "start"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "computer", Arguments: json.RawMessage(`{"action":"screenshot"}`)}}},
		{Role: RoleTool, ToolResults: []ToolResult{{CallID: "c1", Name: "computer", Image: []byte("png"), MIMEType: "image/png"}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "screenshot", contents[1].Parts[0].FunctionCall.Args["action"])

	parts := contents[2].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "c1", parts[0].FunctionResponse.ID)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
}

func TestToGeminiContents_BadArguments(t *testing.T) {
	_, err := toGeminiContents([]Message{{Role: RoleAssistant, ToolCalls: []ToolCall{{Name: "x", Arguments: json.RawMessage(`[1]`)}}}})
	assert.Error(t, err)
}
