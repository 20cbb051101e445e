package extractor

import (
	"encoding/json"
	"strings"
)

// ParseInsight turns raw model output into an Insight. Markdown fences and any
// text around the outermost JSON object are stripped. Output that still does
// not parse yields an empty Insight, never an error.
func ParseInsight(raw string) Insight {
	body := stripFences(raw)

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start == -1 || end <= start {
		return Insight{}
	}

	var in Insight
	if err := json.Unmarshal([]byte(body[start:end+1]), &in); err != nil {
		return Insight{}
	}
	return in
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. "json"
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
