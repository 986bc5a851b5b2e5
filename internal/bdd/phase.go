// Package bdd maps Given/When/Then steps onto executor runs.
package bdd

import (
	"fmt"
	"strings"
)

// Phase is the BDD phase a step belongs to. It selects the system prompt.
type Phase int

const (
	Given Phase = iota
	When
	Then
)

func (p Phase) String() string {
	switch p {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Prompt returns the system prompt for runs in this phase.
func (p Phase) Prompt() string {
	switch p {
	case Given:
		return givenPrompt
	case When:
		return whenPrompt
	case Then:
		return thenPrompt
	default:
		return ""
	}
}

// ParsePhase accepts given, when, then and assert in any case.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "given":
		return Given, nil
	case "when":
		return When, nil
	case "then", "assert":
		return Then, nil
	default:
		return 0, fmt.Errorf("unknown phase %q: want given, when or then", s)
	}
}
