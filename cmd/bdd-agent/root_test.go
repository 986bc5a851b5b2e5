package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/bdd-browser-agent/internal/bdd"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRunRejectsUnknownPhase(t *testing.T) {
	_, err := execute(t, "run", "--phase", "setup", "open the page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown phase "setup"`)
}

func TestRunRequiresInstruction(t *testing.T) {
	_, err := execute(t, "run", "--phase", "when")
	assert.Error(t, err)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--backend", "webkit", "open the page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.backend")
}

func TestScenarioRejectsBadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "scenario", filepath.Join(dir, "missing.feature"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open feature file")

	empty := filepath.Join(dir, "empty.feature")
	require.NoError(t, os.WriteFile(empty, []byte("Feature: nothing\n"), 0o600))
	_, err = execute(t, "scenario", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps found")

	broken := filepath.Join(dir, "broken.feature")
	require.NoError(t, os.WriteFile(broken, []byte("And then something\n"), 0o600))
	_, err = execute(t, "scenario", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bdd-agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gpt-4o-mini\nagent:\n  max_steps: 12\n"), 0o600))

	a := &app{v: viper.New()}
	cmd := a.command()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--max-steps", "7"}))
	require.NoError(t, a.initialize(cmd))

	assert.Equal(t, "gpt-4o-mini", a.cfg.LLM.Model)
	assert.Equal(t, 7, a.cfg.Agent.MaxSteps, "flags override the config file")
	assert.Equal(t, "playwright", a.cfg.Browser.Backend)
	assert.NotNil(t, a.logger)
}

func TestPrintOutcome(t *testing.T) {
	var out bytes.Buffer
	observe := printOutcome(&out)

	observe(bdd.Step{Keyword: "Given", Text: "the user is on the sign-in page"}, nil)
	observe(bdd.Step{Keyword: "And", Text: "the user submits the form"}, errors.New("no enabled submit control found"))

	assert.Equal(t, "PASS Given the user is on the sign-in page\nFAIL And the user submits the form\n", out.String())
}
