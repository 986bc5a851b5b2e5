package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nbenliogludev/bdd-browser-agent/internal/llm"
)

const maxTraceResult = 160

// Report describes one executor run. It lives in memory only.
type Report struct {
	RunID       string
	Instruction string
	State       RunState
	Steps       int
	Reason      string
	FinalURL    string
	Started     time.Time
	Duration    time.Duration
	Trace       []string
}

// Reporter collects the trace of a single run.
type Reporter struct {
	report Report
}

func NewReporter(instruction string) *Reporter {
	return &Reporter{report: Report{
		RunID:       uuid.NewString(),
		Instruction: instruction,
		State:       StateRunning,
		Started:     time.Now(),
	}}
}

// LogToolCall appends one trace line for an executed tool call.
func (r *Reporter) LogToolCall(step int, call llm.ToolCall, result llm.ToolResult) {
	r.report.Trace = append(r.report.Trace, fmt.Sprintf(
		"STEP %d | TOOL=%s | ARGS=%s | RESULT=%s",
		step,
		call.Name,
		compactArgs(call.Arguments),
		describeResult(result),
	))
}

// Finish records the terminal state and returns a copy of the report.
func (r *Reporter) Finish(state RunState, steps int, reason, finalURL string) *Report {
	r.report.State = state
	r.report.Steps = steps
	r.report.Reason = reason
	r.report.FinalURL = finalURL
	r.report.Duration = time.Since(r.report.Started).Truncate(time.Millisecond)

	out := r.report
	out.Trace = append([]string(nil), r.report.Trace...)
	return &out
}

// Print writes the report in a human-readable layout.
func (r *Report) Print(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("\n===== EXECUTION REPORT =====\n")
	fmt.Fprintf(&sb, "Run: %s\n", r.RunID)
	fmt.Fprintf(&sb, "Instruction: %s\n", r.Instruction)
	fmt.Fprintf(&sb, "Duration: %s\n", r.Duration)
	fmt.Fprintf(&sb, "Steps: %d\n", r.Steps)
	fmt.Fprintf(&sb, "Exit reason: %s (%s)\n", r.State.exitReason(), r.State)
	if r.Reason != "" {
		fmt.Fprintf(&sb, "Verdict: %s\n", r.Reason)
	}
	if r.FinalURL != "" {
		fmt.Fprintf(&sb, "Final URL: %s\n", r.FinalURL)
	}

	sb.WriteString("\n--- RAW STEP TRACE ---\n")
	for _, line := range r.Trace {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("===== END OF REPORT =====\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// SummaryInput converts the report into the input of an LLM run summary.
func (r *Report) SummaryInput() llm.SummaryInput {
	return llm.SummaryInput{
		Instruction: r.Instruction,
		ExitReason:  r.State.exitReason(),
		Verdict:     r.Reason,
		FinalURL:    r.FinalURL,
		Duration:    r.Duration.String(),
		Steps:       r.Trace,
	}
}

func compactArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func describeResult(res llm.ToolResult) string {
	if res.Image != nil {
		return fmt.Sprintf("[%s, %d bytes]", res.MIMEType, len(res.Image))
	}
	text := strings.Join(strings.Fields(res.Text), " ")
	if utf8.RuneCountInString(text) > maxTraceResult {
		text = string([]rune(text)[:maxTraceResult]) + "..."
	}
	if res.IsError {
		return "ERROR: " + text
	}
	return text
}
