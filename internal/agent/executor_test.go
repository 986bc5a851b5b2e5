package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser/browsertest"
	"github.com/nbenliogludev/bdd-browser-agent/internal/llm"
	"github.com/nbenliogludev/bdd-browser-agent/internal/tools"
)

const (
	testPhasePrompt = "Perform the action described by the user."
	submitSelector  = `button[type="submit"]:not(:disabled), input[type="submit"]:not(:disabled)`
)

// scriptedModel replays fixed replies, then falls back to next.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []*llm.Reply
	next     func(turn int) (*llm.Reply, error)
	requests []llm.Request
}

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (*llm.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	turn := len(m.requests)
	if turn <= len(m.replies) {
		return m.replies[turn-1], nil
	}
	if m.next != nil {
		return m.next(turn)
	}
	return nil, errors.New("script exhausted")
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) request(i int) llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

func call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func toolReply(calls ...llm.ToolCall) *llm.Reply {
	return &llm.Reply{ToolCalls: calls}
}

func verdictReply(success bool, reason string) *llm.Reply {
	raw, _ := json.Marshal(llm.Verdict{Success: success, Reason: reason})
	return &llm.Reply{Text: string(raw)}
}

func loginPage(enabled bool) *browsertest.FakePage {
	page := browsertest.NewFakePage()
	page.CurrentURL = "https://shop.example/login"
	email := &browsertest.FakeElement{Tag: "input", Attrs: map[string]string{"name": "email", "type": "email"}}
	password := &browsertest.FakeElement{Tag: "input", Attrs: map[string]string{"name": "password", "type": "password"}}
	page.Nodes["input"] = []*browsertest.FakeElement{email, password}
	page.Nodes[`input[name="email"]`] = []*browsertest.FakeElement{email}
	page.Nodes[`input[name="password"]`] = []*browsertest.FakeElement{password}
	if enabled {
		page.Nodes[submitSelector] = []*browsertest.FakeElement{{Tag: "button", Text: "Sign in", Label: "sign-in"}}
	}
	return page
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestExecutor_LoginSucceeds(t *testing.T) {
	page := loginPage(true)
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ToolGetAllInputs, `{}`)),
		toolReply(
			call("c2", tools.ToolTypeIntoInput, `{"inputName":"email","text":"a@b.com"}`),
			call("c3", tools.ToolTypeIntoInput, `{"inputName":"password","text":"secret"}`),
		),
		toolReply(call("c4", tools.ToolListAllSubmitButtons, `{}`)),
		toolReply(call("c5", tools.ToolClickSubmitButton, `{"index":0}`)),
		verdictReply(true, "Filled email and password and clicked Sign in"),
	}}

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), page,
		"submit the login form with a@b.com / secret", testPhasePrompt)
	require.NoError(t, err)

	assert.Equal(t, []string{"fill(email=a@b.com)", "fill(password=secret)", "clickel(sign-in)"}, page.Events())
	assert.Equal(t, 5, model.calls())

	assert.Equal(t, StateSucceeded, report.State)
	assert.Equal(t, 4, report.Steps)
	assert.Equal(t, "Filled email and password and clicked Sign in", report.Reason)
	assert.Equal(t, "https://shop.example/login", report.FinalURL)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Trace, 5)
	assert.Equal(t, `STEP 2 | TOOL=typeIntoInput | ARGS={"inputName":"email","text":"a@b.com"} | RESULT=Typed "a@b.com" into input with name="email"`, report.Trace[1])

	first := model.request(0)
	assert.Equal(t, testPhasePrompt, first.System)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, llm.RoleUser, first.Messages[0].Role)
	require.NotNil(t, first.Verdict)
	assert.Len(t, first.Tools, 8)
	assert.Equal(t, tools.ComputerToolName, first.Tools[len(first.Tools)-1].Name)

	second := model.request(1)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	results := second.Messages[2].ToolResults
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].CallID)
	assert.Contains(t, results[0].Text, `name="email"`)

	third := model.request(2)
	results = third.Messages[4].ToolResults
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].CallID)
	assert.Equal(t, "c3", results[1].CallID)
}

func TestExecutor_DisabledSubmitFails(t *testing.T) {
	page := loginPage(false)
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ToolListAllSubmitButtons, `{}`)),
		verdictReply(false, "no enabled submit control found"),
	}}

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), page, "submit the login form", testPhasePrompt)
	require.Error(t, err)
	assert.EqualError(t, err, "no enabled submit control found")
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.NotErrorIs(t, err, ErrStepBudgetExhausted)

	var verdictErr *VerdictError
	require.ErrorAs(t, err, &verdictErr)
	assert.Equal(t, "no enabled submit control found", verdictErr.Reason)

	assert.Equal(t, StateFailed, report.State)
	last := model.request(1).Messages[2].ToolResults[0]
	assert.False(t, last.IsError)
	assert.Equal(t, "No active (enabled) submit buttons found on the page.", last.Text)
	assert.Empty(t, page.Events())
}

func TestExecutor_BudgetExhausted(t *testing.T) {
	page := browsertest.NewFakePage()
	model := &scriptedModel{next: func(turn int) (*llm.Reply, error) {
		return toolReply(call(fmt.Sprintf("c%d", turn), tools.ToolGetStructuredContent, `{}`)), nil
	}}
	page.HTML = "<html><body><p>Loading</p></body></html>"

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), page, "click the button that never appears", testPhasePrompt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepBudgetExhausted)
	assert.NotErrorIs(t, err, ErrStepFailed)
	assert.EqualError(t, err, "exceeded step budget of 40 tool-issuing turns without a verdict")

	assert.Equal(t, DefaultMaxSteps, model.calls())
	assert.Equal(t, StateBudgetExhausted, report.State)
	assert.Equal(t, DefaultMaxSteps, report.Steps)
	assert.Len(t, report.Trace, DefaultMaxSteps)
}

func TestExecutor_WithMaxSteps(t *testing.T) {
	model := &scriptedModel{next: func(turn int) (*llm.Reply, error) {
		return toolReply(call("c", tools.ComputerToolName, `{"action":"cursor_position"}`)), nil
	}}

	err := NewExecutor(model, WithMaxSteps(3)).Execute(context.Background(), browsertest.NewFakePage(), "loop", testPhasePrompt)

	var budgetErr *BudgetExhaustedError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, 3, budgetErr.MaxSteps)
	assert.Equal(t, 3, model.calls())
}

func TestExecutor_ToolErrorsAreFedBack(t *testing.T) {
	page := loginPage(true)
	logger, logs := observedLogger()
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(
			call("c1", tools.ToolTypeIntoInput, `{"inputName":"missing","text":"x"}`),
			call("c2", tools.ComputerToolName, `{"action":"mouse_move"}`),
			call("c3", "noSuchTool", `{}`),
		),
		verdictReply(true, "recovered"),
	}}

	err := NewExecutor(model, WithLogger(logger)).Execute(context.Background(), page, "type into the missing field", testPhasePrompt)
	require.NoError(t, err)

	results := model.request(1).Messages[2].ToolResults
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.IsError, r.CallID)
	}
	assert.Equal(t, `No input with name="missing" found on the page`, results[0].Text)
	assert.Equal(t, "Coordinates required for mouse_move action", results[1].Text)
	assert.Empty(t, page.Events(), "no keystrokes or pointer events on failed calls")

	assert.Equal(t, 3, logs.FilterMessage("Tool call rejected").Len())
}

func TestExecutor_DriverErrorIsObservation(t *testing.T) {
	page := browsertest.NewFakePage()
	page.Errs = map[string]error{"Screenshot": errors.New("target closed")}
	logger, logs := observedLogger()
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ComputerToolName, `{"action":"screenshot"}`)),
		verdictReply(false, "could not capture the page"),
	}}

	err := NewExecutor(model, WithLogger(logger)).Execute(context.Background(), page, "look at the page", testPhasePrompt)
	assert.ErrorIs(t, err, ErrStepFailed)

	result := model.request(1).Messages[2].ToolResults[0]
	assert.True(t, result.IsError)
	assert.Equal(t, "screenshot failed: target closed", result.Text)

	failed := logs.FilterMessage("Tool call failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "executor", failed[0].LoggerName)
}

func TestExecutor_CursorPersistsAcrossTurns(t *testing.T) {
	page := browsertest.NewFakePage()
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ComputerToolName, `{"action":"mouse_move","coordinate":[10,20]}`)),
		toolReply(call("c2", tools.ComputerToolName, `{"action":"left_click"}`)),
		toolReply(call("c3", tools.ComputerToolName, `{"action":"cursor_position"}`)),
		verdictReply(true, "clicked"),
	}}

	require.NoError(t, NewExecutor(model).Execute(context.Background(), page, "click at 10,20", testPhasePrompt))

	assert.Equal(t, []string{"move(10,20)", "click(left,10,20)"}, page.Events())
	assert.Equal(t, "(10, 20)", model.request(3).Messages[6].ToolResults[0].Text)
}

func TestExecutor_FreshCursorPerRun(t *testing.T) {
	page := browsertest.NewFakePage()
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ComputerToolName, `{"action":"mouse_move","coordinate":[5,5]}`)),
		verdictReply(true, "moved"),
		toolReply(call("c2", tools.ComputerToolName, `{"action":"cursor_position"}`)),
		verdictReply(true, "reported"),
	}}
	exec := NewExecutor(model)

	require.NoError(t, exec.Execute(context.Background(), page, "move", testPhasePrompt))
	require.NoError(t, exec.Execute(context.Background(), page, "where", testPhasePrompt))

	assert.Equal(t, "(0, 0)", model.request(3).Messages[2].ToolResults[0].Text)
}

func TestExecutor_ScreenshotResultCarriesImage(t *testing.T) {
	page := browsertest.NewFakePage()
	model := &scriptedModel{replies: []*llm.Reply{
		toolReply(call("c1", tools.ComputerToolName, `{"action":"screenshot"}`)),
		verdictReply(true, "seen"),
	}}

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), page, "look", testPhasePrompt)
	require.NoError(t, err)

	result := model.request(1).Messages[2].ToolResults[0]
	assert.Equal(t, page.PNG, result.Image)
	assert.Equal(t, "image/png", result.MIMEType)
	assert.Contains(t, report.Trace[0], "RESULT=[image/png, 8 bytes]")
}

func TestExecutor_MalformedVerdict(t *testing.T) {
	model := &scriptedModel{replies: []*llm.Reply{{Text: "I have completed the task."}}}

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), browsertest.NewFakePage(), "do it", testPhasePrompt)
	assert.ErrorIs(t, err, ErrMalformedVerdict)
	assert.NotErrorIs(t, err, ErrStepFailed)
	assert.Equal(t, StateErrored, report.State)
	assert.Equal(t, 0, report.Steps)
}

func TestExecutor_ModelError(t *testing.T) {
	boom := errors.New("connection reset")
	model := &scriptedModel{next: func(int) (*llm.Reply, error) { return nil, boom }}

	report, err := NewExecutor(model).ExecuteWithReport(context.Background(), browsertest.NewFakePage(), "do it", testPhasePrompt)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateErrored, report.State)
}

func TestExecutor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := &scriptedModel{}

	report, err := NewExecutor(model).ExecuteWithReport(ctx, browsertest.NewFakePage(), "do it", testPhasePrompt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, model.calls())
	assert.Equal(t, StateErrored, report.State)
}

func TestExecutor_LogsRunOutcome(t *testing.T) {
	logger, logs := observedLogger()
	model := &scriptedModel{replies: []*llm.Reply{verdictReply(true, "already there")}}

	require.NoError(t, NewExecutor(model, WithLogger(logger)).Execute(context.Background(), browsertest.NewFakePage(), "noop", testPhasePrompt))

	finished := logs.FilterMessage("Step finished").All()
	require.Len(t, finished, 1)
	ctx := finished[0].ContextMap()
	assert.Equal(t, "succeeded", ctx["state"])
	assert.Equal(t, "already there", ctx["reason"])
	assert.NotEmpty(t, ctx["run_id"])
}
