package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Verdict is the structured outcome a run ends with.
type Verdict struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// VerdictSchemaName names the schema in provider requests.
const VerdictSchemaName = "verdict"

// VerdictSchema describes Verdict for the model and for validation.
func VerdictSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"success": {
				Type: jsonschema.Boolean,
				Description: "Whether the instruction was carried out completely, without errors or surprises. " +
					"True only if every step ran as intended and the goal was reached.",
			},
			"reason": {
				Type: jsonschema.String,
				Description: "The final outcome. On success, summarize what was done to fulfil the instruction. " +
					"On failure, describe the error or the condition that prevented completion.",
			},
		},
		Required:             []string{"success", "reason"},
		AdditionalProperties: false,
	}
}

// ParseVerdict validates text against schema and decodes it. Surrounding
// whitespace and a markdown code fence are tolerated.
func ParseVerdict(schema jsonschema.Definition, text string) (Verdict, error) {
	content := stripCodeFence(text)
	if content == "" {
		return Verdict{}, fmt.Errorf("empty reply")
	}
	var v Verdict
	if err := schema.Unmarshal(content, &v); err != nil {
		return Verdict{}, fmt.Errorf("reply does not match verdict schema: %w", err)
	}
	return v, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// verdictInstruction is appended to the system prompt for providers that
// cannot constrain the final reply to a schema natively.
func verdictInstruction(schema jsonschema.Definition) string {
	raw, err := json.Marshal(&schema)
	if err != nil {
		raw = []byte(`{"success": boolean, "reason": string}`)
	}
	return "When you are done, reply with only a JSON object matching this schema and nothing else:\n" + string(raw)
}
