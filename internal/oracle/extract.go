package oracle

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(.*?)```")

// ExtractPayload strips a markdown code fence from a decision response.
// The service is instructed to answer with only the payload, but wrapping
// it in a fenced block anyway is common enough to tolerate. Responses
// without a fence come back trimmed.
func ExtractPayload(text string) string {
	text = strings.TrimSpace(text)

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Unterminated fence: drop the opening marker line.
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			return strings.TrimSpace(text[idx+1:])
		}
	}
	return text
}
