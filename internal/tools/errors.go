package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrInputContract marks invocations whose arguments are missing or
	// malformed. Nothing has touched the page when it is returned.
	ErrInputContract = errors.New("invalid tool input")
	// ErrLookup marks invocations that queried the page and found no target.
	ErrLookup = errors.New("tool target not found")
)

// ToolError is a recoverable tool failure. The executor reports it to the
// model as an error observation; its message is what the model sees.
type ToolError struct {
	Kind error
	Msg  string
}

func (e *ToolError) Error() string { return e.Msg }

func (e *ToolError) Unwrap() error { return e.Kind }

func inputErrorf(format string, args ...any) error {
	return &ToolError{Kind: ErrInputContract, Msg: fmt.Sprintf(format, args...)}
}

func lookupErrorf(format string, args ...any) error {
	return &ToolError{Kind: ErrLookup, Msg: fmt.Sprintf(format, args...)}
}
