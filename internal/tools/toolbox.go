package tools

import (
	"context"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
)

// Toolbox is the full tool set of one run: the DOM tools plus the computer
// tool, which is merged last and wins any name collision.
type Toolbox struct {
	computer *Computer
	dom      *DOM
	manifest Manifest
}

// NewToolbox binds fresh tools, with the cursor at the origin, to page.
func NewToolbox(page browser.Page) *Toolbox {
	computer := NewComputer(page)
	dom := NewDOM(page)
	return &Toolbox{
		computer: computer,
		dom:      dom,
		manifest: Merge(dom.Definitions(), computer.Definitions()),
	}
}

// Manifest returns the merged tool manifest.
func (t *Toolbox) Manifest() Manifest { return t.manifest }

// Cursor returns the computer tool's remembered pointer position.
func (t *Toolbox) Cursor() Cursor { return t.computer.Cursor() }

// Invoke dispatches one tool call.
func (t *Toolbox) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if _, ok := t.manifest.Lookup(inv.Name); !ok {
		return Result{}, inputErrorf("Unknown tool %q", inv.Name)
	}
	if inv.Name == ComputerToolName {
		return t.computer.Invoke(ctx, inv.Arguments)
	}
	return t.dom.Invoke(ctx, inv.Name, inv.Arguments)
}
