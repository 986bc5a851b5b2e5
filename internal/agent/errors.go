package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrStepFailed matches a run whose verdict reported failure.
	ErrStepFailed = errors.New("step failed")
	// ErrStepBudgetExhausted matches a run that hit the step ceiling
	// without a verdict.
	ErrStepBudgetExhausted = errors.New("step budget exhausted")
	// ErrMalformedVerdict is returned when the model's final reply does not
	// satisfy the verdict schema.
	ErrMalformedVerdict = errors.New("malformed verdict")
)

// VerdictError carries the model's reason for a failed step.
type VerdictError struct {
	Reason string
}

func (e *VerdictError) Error() string { return e.Reason }

func (e *VerdictError) Is(target error) bool { return target == ErrStepFailed }

// BudgetExhaustedError reports the ceiling a run exhausted.
type BudgetExhaustedError struct {
	MaxSteps int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("exceeded step budget of %d tool-issuing turns without a verdict", e.MaxSteps)
}

func (e *BudgetExhaustedError) Is(target error) bool { return target == ErrStepBudgetExhausted }
