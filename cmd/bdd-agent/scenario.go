package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/bdd-browser-agent/internal/bdd"
)

func newScenarioCmd(a *app) *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "scenario FILE",
		Short: "Executes the Given/When/Then steps of a feature file in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readSteps(args[0])
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				return errors.New("no steps found in " + args[0])
			}

			return a.withSession(cmd.Context(), startURL, func(ctx context.Context, s *session) error {
				scenario := bdd.NewScenario(s.page, s.executor, a.logger)
				return scenario.Run(ctx, steps, printOutcome(cmd.OutOrStdout()))
			})
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "page to open before the first step")
	return cmd
}

// printOutcome writes one PASS or FAIL line per executed step.
func printOutcome(w io.Writer) bdd.StepObserver {
	return func(step bdd.Step, err error) {
		status := "PASS"
		if err != nil {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s %s\n", status, step.Keyword, step.Text)
	}
}

func readSteps(path string) ([]bdd.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()

	steps, err := bdd.ParseSteps(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}
