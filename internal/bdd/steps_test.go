package bdd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginFeature = `Feature: Sign in

  # happy path
  Scenario: existing user signs in
    Given the user is on the login page
    When the user submits the login form with a@b.com / secret
    And waits for the page to load
    Then the page greets the user
    But the login form is no longer visible
`

func TestParseSteps(t *testing.T) {
	steps, err := ParseSteps(strings.NewReader(loginFeature))
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, Step{Phase: Given, Keyword: "Given", Text: "the user is on the login page", Line: 5}, steps[0])
	assert.Equal(t, When, steps[1].Phase)
	assert.Equal(t, When, steps[2].Phase, "And continues the When phase")
	assert.Equal(t, "waits for the page to load", steps[2].Text)
	assert.Equal(t, Then, steps[3].Phase)
	assert.Equal(t, Then, steps[4].Phase, "But continues the Then phase")
	assert.Equal(t, 9, steps[4].Line)
}

func TestParseSteps_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading and", "And something", "line 1"},
		{"unknown keyword", "Given a\nOpen the page", `unknown phase "Open"`},
		{"empty step", "Given the page\nWhen", `step "When" has no text`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSteps(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSteps_Empty(t *testing.T) {
	steps, err := ParseSteps(strings.NewReader("Feature: nothing\n\n# only comments\n"))
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{"given": Given, "WHEN": When, "Then": Then, "assert": Then} {
		got, err := ParsePhase(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePhase("setup")
	assert.Error(t, err)
}

func TestPhasePromptsAreDistinct(t *testing.T) {
	prompts := map[string]Phase{}
	for _, p := range []Phase{Given, When, Then} {
		prompt := p.Prompt()
		require.NotEmpty(t, prompt, p.String())
		assert.Contains(t, prompt, `"success"`)
		assert.Contains(t, prompt, `"reason"`)
		_, dup := prompts[prompt]
		assert.False(t, dup, "%s shares a prompt", p)
		prompts[prompt] = p
	}
	assert.Empty(t, Phase(7).Prompt())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}
