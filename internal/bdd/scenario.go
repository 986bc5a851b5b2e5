package bdd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
)

// StepExecutor runs one instruction against a page under a system prompt.
// *agent.Executor implements it.
type StepExecutor interface {
	Execute(ctx context.Context, page browser.Page, instruction, phasePrompt string) error
}

// Scenario binds a page to an executor so steps can be written as
// s.Given(ctx, "..."), s.When(ctx, "..."), s.Then(ctx, "...").
// A scenario owns its page; concurrent scenarios need separate pages.
type Scenario struct {
	page   browser.Page
	exec   StepExecutor
	logger *zap.Logger
}

func NewScenario(page browser.Page, exec StepExecutor, logger *zap.Logger) *Scenario {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scenario{page: page, exec: exec, logger: logger.Named("scenario")}
}

func (s *Scenario) Given(ctx context.Context, instruction string) error {
	return s.Step(ctx, Given, instruction)
}

func (s *Scenario) When(ctx context.Context, instruction string) error {
	return s.Step(ctx, When, instruction)
}

func (s *Scenario) Then(ctx context.Context, instruction string) error {
	return s.Step(ctx, Then, instruction)
}

// Step executes instruction with the prompt of phase.
func (s *Scenario) Step(ctx context.Context, phase Phase, instruction string) error {
	s.logger.Info("Running step", zap.Stringer("phase", phase), zap.String("instruction", instruction))
	if err := s.exec.Execute(ctx, s.page, instruction, phase.Prompt()); err != nil {
		return fmt.Errorf("%s %s: %w", phase, instruction, err)
	}
	return nil
}

// StepObserver is told the outcome of every step Run executes.
type StepObserver func(step Step, err error)

// Run executes steps in order and stops at the first failure. observe may be
// nil.
func (s *Scenario) Run(ctx context.Context, steps []Step, observe StepObserver) error {
	for i, step := range steps {
		err := s.Step(ctx, step.Phase, step.Text)
		if observe != nil {
			observe(step, err)
		}
		if err != nil {
			s.logger.Warn("Scenario stopped",
				zap.Int("step", i+1),
				zap.Int("line", step.Line),
				zap.Int("skipped", len(steps)-i-1),
			)
			return err
		}
	}
	return nil
}
