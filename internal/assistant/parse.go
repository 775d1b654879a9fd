package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"

	"repoedit/internal/edit"
)

// jsonBlockRe grabs everything from the first '{' to the last '}'.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseReply extracts proposed edits from a model reply. Replies without a
// JSON block, or whose block does not parse, carry text only. Individual
// edits that fail to decode or validate are dropped and reported.
func ParseReply(text string) (*Response, []error) {
	resp := &Response{Text: text, Edits: []edit.Edit{}}

	block := jsonBlockRe.FindString(text)
	if block == "" {
		return resp, nil
	}

	var env struct {
		Files []json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal([]byte(block), &env); err != nil {
		return resp, []error{fmt.Errorf("reply JSON: %w", err)}
	}

	var problems []error
	for i, raw := range env.Files {
		var e edit.Edit
		if err := json.Unmarshal(raw, &e); err != nil {
			problems = append(problems, fmt.Errorf("edit %d: %w", i, err))
			continue
		}
		if err := e.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("edit %d: %w", i, err))
			continue
		}
		resp.Edits = append(resp.Edits, e)
	}
	resp.Dropped = len(problems)
	return resp, problems
}
