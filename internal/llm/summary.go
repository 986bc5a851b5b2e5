package llm

import (
	"context"
	"errors"
	"strings"
)

// SummaryInput is what a finished run exposes for summarization.
type SummaryInput struct {
	Instruction string
	ExitReason  string
	Verdict     string
	FinalURL    string
	Duration    string
	Steps       []string
}

// SummarizeRun asks the model for a short human-readable account of a run.
// No tools are offered, so the reply is plain text.
func SummarizeRun(ctx context.Context, m Model, input SummaryInput) (string, error) {
	var sb strings.Builder
	sb.WriteString("INSTRUCTION:\n" + input.Instruction + "\n\n")
	sb.WriteString("EXIT_REASON:\n" + input.ExitReason + "\n\n")
	if input.Verdict != "" {
		sb.WriteString("VERDICT:\n" + input.Verdict + "\n\n")
	}
	sb.WriteString("DURATION:\n" + input.Duration + "\n\n")

	if input.FinalURL != "" {
		sb.WriteString("FINAL_URL:\n" + input.FinalURL + "\n\n")
	}

	if len(input.Steps) > 0 {
		sb.WriteString("STEPS:\n")
		for _, s := range input.Steps {
			sb.WriteString(s + "\n")
		}
	}

	reply, err := m.Generate(ctx, Request{
		System:   summarySystemPrompt,
		Messages: []Message{{Role: RoleUser, Text: sb.String()}},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply.Text) == "" {
		return "", errors.New("empty summary")
	}
	return strings.TrimSpace(reply.Text), nil
}
