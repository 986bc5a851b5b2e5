package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
	"github.com/nbenliogludev/bdd-browser-agent/internal/llm"
	"github.com/nbenliogludev/bdd-browser-agent/internal/tools"
)

// DefaultMaxSteps is the number of tool-issuing turns a run may take.
const DefaultMaxSteps = 40

// Executor runs one natural-language instruction against a page by letting a
// model call browser tools until it returns a verdict.
type Executor struct {
	model       llm.Model
	maxSteps    int
	stepTimeout time.Duration
	logger      *zap.Logger
}

type Option func(*Executor)

// WithMaxSteps overrides the step ceiling. Non-positive values are ignored.
func WithMaxSteps(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithStepTimeout bounds every single tool call. Zero means no bound.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.stepTimeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewExecutor(model llm.Model, opts ...Option) *Executor {
	e := &Executor{
		model:    model,
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("executor")
	return e
}

// Execute runs instruction on page with phasePrompt as the system prompt. It
// returns nil only when the model reports success.
func (e *Executor) Execute(ctx context.Context, page browser.Page, instruction, phasePrompt string) error {
	_, err := e.ExecuteWithReport(ctx, page, instruction, phasePrompt)
	return err
}

// ExecuteWithReport is Execute that also returns the run report. The report
// is never nil.
func (e *Executor) ExecuteWithReport(ctx context.Context, page browser.Page, instruction, phasePrompt string) (*Report, error) {
	r := &run{
		executor: e,
		toolbox:  tools.NewToolbox(page),
		reporter: NewReporter(instruction),
		state:    StateRunning,
	}
	r.logger = e.logger.With(zap.String("run_id", r.reporter.report.RunID))
	r.logger.Info("Executing step", zap.String("instruction", instruction), zap.Int("max_steps", e.maxSteps))

	reason, err := r.loop(ctx, instruction, phasePrompt)

	finalURL, _ := page.URL(context.WithoutCancel(ctx))
	report := r.reporter.Finish(r.state, r.steps, reason, finalURL)

	fields := []zap.Field{
		zap.Stringer("state", r.state),
		zap.Int("steps", r.steps),
		zap.Duration("duration", report.Duration),
	}
	if err != nil {
		r.logger.Warn("Step finished unsuccessfully", append(fields, zap.Error(err))...)
	} else {
		r.logger.Info("Step finished", append(fields, zap.String("reason", reason))...)
	}
	return report, err
}

// run is the state of one Execute call. Nothing in it outlives the call.
type run struct {
	executor *Executor
	toolbox  *tools.Toolbox
	reporter *Reporter
	logger   *zap.Logger

	state RunState
	steps int
}

func (r *run) loop(ctx context.Context, instruction, phasePrompt string) (string, error) {
	schema := llm.VerdictSchema()
	specs := toolSpecs(r.toolbox.Manifest())
	messages := []llm.Message{{Role: llm.RoleUser, Text: instruction}}

	for {
		if err := ctx.Err(); err != nil {
			r.state = StateErrored
			return "", fmt.Errorf("step execution interrupted: %w", err)
		}

		reply, err := r.executor.model.Generate(ctx, llm.Request{
			System:   phasePrompt,
			Messages: messages,
			Tools:    specs,
			Verdict:  &schema,
		})
		if err != nil {
			r.state = StateErrored
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				return "", fmt.Errorf("step execution interrupted: %w", ctxErr)
			}
			return "", fmt.Errorf("model call failed: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			return r.conclude(schema, reply.Text)
		}

		r.steps++
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Text: reply.Text, ToolCalls: reply.ToolCalls})

		results := make([]llm.ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			results = append(results, r.invoke(ctx, call))
		}
		messages = append(messages, llm.Message{Role: llm.RoleTool, ToolResults: results})

		if r.steps >= r.executor.maxSteps {
			r.state = StateBudgetExhausted
			return "", &BudgetExhaustedError{MaxSteps: r.executor.maxSteps}
		}
	}
}

func (r *run) conclude(schema jsonschema.Definition, text string) (string, error) {
	verdict, err := llm.ParseVerdict(schema, text)
	if err != nil {
		r.state = StateErrored
		r.logger.Error("Model reply is not a valid verdict", zap.String("reply", text), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if !verdict.Success {
		r.state = StateFailed
		return verdict.Reason, &VerdictError{Reason: verdict.Reason}
	}
	r.state = StateSucceeded
	return verdict.Reason, nil
}

// invoke runs one tool call. Every failure becomes an error observation for
// the model; none of them ends the run.
func (r *run) invoke(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	if r.executor.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.executor.stepTimeout)
		defer cancel()
	}

	res, err := r.toolbox.Invoke(ctx, tools.Invocation{ID: call.ID, Name: call.Name, Arguments: call.Arguments})

	out := llm.ToolResult{CallID: call.ID, Name: call.Name}
	if err != nil {
		out.Text = err.Error()
		out.IsError = true

		var toolErr *tools.ToolError
		if errors.As(err, &toolErr) {
			r.logger.Info("Tool call rejected", zap.Int("step", r.steps), zap.String("tool", call.Name), zap.Error(err))
		} else {
			r.logger.Warn("Tool call failed", zap.Int("step", r.steps), zap.String("tool", call.Name), zap.Error(err))
		}
	} else {
		out.Text = res.Text
		out.Image = res.Image
		out.MIMEType = res.MIMEType
		r.logger.Debug("Tool call executed",
			zap.Int("step", r.steps),
			zap.String("tool", call.Name),
			zap.ByteString("args", call.Arguments),
			zap.Stringer("cursor", r.toolbox.Cursor()),
		)
	}

	r.reporter.LogToolCall(r.steps, call, out)
	return out
}

func toolSpecs(m tools.Manifest) []llm.ToolSpec {
	defs := m.Definitions()
	specs := make([]llm.ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, llm.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return specs
}
