package bdd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Step is one parsed step line.
type Step struct {
	Phase   Phase
	Keyword string
	Text    string
	Line    int
}

// ParseSteps reads Gherkin-style step lines. Blank lines, # comments and
// Feature/Scenario/Background headers are skipped. And and But continue the
// phase of the previous step.
func ParseSteps(r io.Reader) ([]Step, error) {
	var (
		steps   []Step
		current Phase
		seen    bool
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || isHeader(line) {
			continue
		}

		keyword, text, _ := strings.Cut(line, " ")
		text = strings.TrimSpace(text)

		switch strings.ToLower(keyword) {
		case "and", "but", "*":
			if !seen {
				return nil, fmt.Errorf("line %d: %q must follow a Given, When or Then step", lineNo, keyword)
			}
		default:
			phase, err := ParsePhase(keyword)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = phase
			seen = true
		}

		if text == "" {
			return nil, fmt.Errorf("line %d: step %q has no text", lineNo, keyword)
		}
		steps = append(steps, Step{Phase: current, Keyword: keyword, Text: text, Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	return steps, nil
}

func isHeader(line string) bool {
	for _, h := range []string{"Feature:", "Scenario:", "Scenario Outline:", "Background:", "Rule:"} {
		if strings.HasPrefix(line, h) {
			return true
		}
	}
	return false
}
