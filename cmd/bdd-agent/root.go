package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/agent"
	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
	"github.com/nbenliogludev/bdd-browser-agent/internal/llm"
	"github.com/nbenliogludev/bdd-browser-agent/internal/observability"
)

// app is the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// flagBindings maps persistent flags onto config keys.
var flagBindings = map[string]string{
	"provider":     "llm.provider",
	"model":        "llm.model",
	"backend":      "browser.backend",
	"headless":     "browser.headless",
	"max-steps":    "agent.max_steps",
	"step-timeout": "agent.step_timeout",
	"log-level":    "logger.level",
	"log-file":     "logger.log_file",
}

func newRootCmd() *cobra.Command {
	return (&app{v: viper.New()}).command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "bdd-agent",
		Short:         "Runs Given/When/Then steps in a real browser through a tool-calling model",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync(a.logger)
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./bdd-agent.yaml)")
	flags.String("provider", "", "model provider: openai, bedrock or gemini")
	flags.String("model", "", "model name or Bedrock model ID")
	flags.String("backend", "", "browser backend: playwright or chromedp")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Int("max-steps", 0, "tool-issuing turns allowed per step")
	flags.Duration("step-timeout", 0, "timeout of a single tool call (0 = none)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this rotated file")

	root.AddCommand(newRunCmd(a), newScenarioCmd(a), newVersionCmd())
	return root
}

func (a *app) initialize(cmd *cobra.Command) error {
	for name, key := range flagBindings {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.NewStderrLogger(cfg.Logger)
	a.logger.Debug("Configuration loaded",
		zap.String("config_file", a.v.ConfigFileUsed()),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("backend", cfg.Browser.Backend),
	)
	return nil
}

// session is everything one command needs to execute steps.
type session struct {
	model    llm.Model
	page     browser.Page
	executor *agent.Executor
}

// withSession starts the model client and a browser page, opens startURL
// when given, runs fn and tears everything down.
func (a *app) withSession(ctx context.Context, startURL string, fn func(ctx context.Context, s *session) error) error {
	model, err := llm.New(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	browserSession, err := browser.Open(ctx, a.cfg.Browser, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := browserSession.Close(); err != nil {
			a.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	page, err := browserSession.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if startURL != "" {
		a.logger.Info("Opening start page", zap.String("url", startURL))
		if err := page.Navigate(ctx, startURL); err != nil {
			return fmt.Errorf("could not navigate to %s: %w", startURL, err)
		}
	}

	return fn(ctx, &session{
		model: model,
		page:  page,
		executor: agent.NewExecutor(model,
			agent.WithMaxSteps(a.cfg.Agent.MaxSteps),
			agent.WithStepTimeout(a.cfg.Agent.StepTimeout),
			agent.WithLogger(a.logger),
		),
	})
}

// printSummary asks the model for a summary of report and writes it to w.
// A failed summary is logged, never returned.
func (a *app) printSummary(ctx context.Context, w io.Writer, model llm.Model, report *agent.Report) {
	summary, err := llm.SummarizeRun(ctx, model, report.SummaryInput())
	if err != nil {
		a.logger.Warn("Failed to generate run summary", zap.Error(err))
		fmt.Fprintln(w, "(failed to generate summary)")
		return
	}
	fmt.Fprintln(w, "\n--- LLM SUMMARY ---")
	fmt.Fprintln(w, summary)
}
