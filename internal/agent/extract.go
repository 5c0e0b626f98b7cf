package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", `'`, "’", `'`,
)

// ExtractJSON isolates the JSON payload in free-form agent output.
// A ```json fence wins over a bare ``` fence; without fences the text is
// trimmed to the outermost braces.
func ExtractJSON(output string) string {
	content := strings.TrimSpace(output)

	switch {
	case strings.Contains(content, "```json"):
		content = strings.SplitN(content, "```json", 2)[1]
		content = strings.SplitN(content, "```", 2)[0]
	case strings.Contains(content, "```"):
		parts := strings.SplitN(content, "```", 3)
		content = parts[1]
	}

	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start != -1 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}

// DecodeJSON extracts and unmarshals the JSON payload in output into v.
// Smart quotes are normalized only when the raw payload fails to parse.
func DecodeJSON(output string, v any) error {
	payload := ExtractJSON(output)
	if payload == "" {
		return fmt.Errorf("no JSON payload in output")
	}
	err := json.Unmarshal([]byte(payload), v)
	if err == nil {
		return nil
	}
	if normalized := quoteReplacer.Replace(payload); normalized != payload {
		if json.Unmarshal([]byte(normalized), v) == nil {
			return nil
		}
	}
	return err
}
