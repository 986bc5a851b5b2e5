package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/bdd-browser-agent/internal/bdd"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		startURL  string
		phaseName string
		report    bool
		summarize bool
	)

	cmd := &cobra.Command{
		Use:   "run [instruction...]",
		Short: "Executes a single step instruction",
		Example: `  bdd-agent run --url https://shop.example/login --phase when \
    "submit the login form with a@b.com / secret"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := bdd.ParsePhase(phaseName)
			if err != nil {
				return err
			}
			instruction := strings.Join(args, " ")

			return a.withSession(cmd.Context(), startURL, func(ctx context.Context, s *session) error {
				rep, runErr := s.executor.ExecuteWithReport(ctx, s.page, instruction, phase.Prompt())

				out := cmd.OutOrStdout()
				if report {
					if err := rep.Print(out); err != nil {
						return err
					}
				}
				if summarize {
					a.printSummary(ctx, out, s.model, rep)
				}
				if runErr != nil {
					return fmt.Errorf("%s %s: %w", phase, instruction, runErr)
				}
				fmt.Fprintf(out, "PASS %s %s: %s\n", phase, instruction, rep.Reason)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "page to open before the step")
	cmd.Flags().StringVar(&phaseName, "phase", "when", "step phase: given, when or then")
	cmd.Flags().BoolVar(&report, "report", false, "print the execution report")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "ask the model for a summary of the run")
	return cmd
}
