package agent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// editResponse is the JSON shape the model is asked to emit.
type editResponse struct {
	Explanation string      `json:"explanation"`
	Operations  []Operation `json:"operations"`
}

// partialNote is used when a truncated response yields operations but no
// recoverable explanation.
const partialNote = "Partial result: the response was cut off before completion."

// closingSuffixes are appended, in order, to a response that fails to parse.
// They cover the common truncation points: after an operation object, after
// the operations array, after the explanation, and mid-string.
var closingSuffixes = []string{
	"}]}",
	"]}",
	"}",
	`"]]}`,
	`"}]}`,
}

// parseEditResponse parses model output into an editResponse, attempting
// structural repair when the output is truncated or malformed. The second
// return reports whether repair was needed (the result is then a best-effort
// prefix of what the model intended); the third reports overall success.
func parseEditResponse(raw string) (editResponse, bool, bool) {
	text := stripFences(strings.TrimSpace(raw))
	if resp, ok := parseStrict(text); ok {
		return resp, false, true
	}
	for _, suffix := range closingSuffixes {
		resp, ok := parseStrict(text + suffix)
		if !ok {
			continue
		}
		if resp, ok := sanitizeRepaired(resp); ok {
			return resp, true, true
		}
	}
	if resp, ok := parseBalancedPrefix(text); ok {
		if resp, ok := sanitizeRepaired(resp); ok {
			return resp, true, true
		}
	}
	return editResponse{}, false, false
}

// sanitizeRepaired guards a repaired parse against fabricated operations:
// a closing suffix appended at a mid-token cut can synthesize an object the
// model never finished emitting, recognizable by its missing mandatory
// reason. Zero surviving operations means this strategy failed and the next
// one (or chunked escalation) should run.
func sanitizeRepaired(resp editResponse) (editResponse, bool) {
	kept := make([]Operation, 0, len(resp.Operations))
	for _, op := range resp.Operations {
		if op.Reason == "" {
			continue
		}
		kept = append(kept, op)
	}
	if len(kept) == 0 {
		return editResponse{}, false
	}
	resp.Operations = kept
	return resp, true
}

// parseStrict accepts only well-formed JSON objects that carry an
// operations key.
func parseStrict(text string) (editResponse, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return editResponse{}, false
	}
	if _, ok := fields["operations"]; !ok {
		return editResponse{}, false
	}
	var resp editResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return editResponse{}, false
	}
	return resp, true
}

// parseBalancedPrefix is the last-resort repair: locate the operations
// array and walk brace depth (string- and escape-aware) collecting every
// fully balanced object, which together form an order-preserving prefix of
// the intended operation list. Fails if not even one object is complete,
// so the caller can escalate instead of silently returning nothing.
func parseBalancedPrefix(text string) (editResponse, bool) {
	marker := strings.Index(text, `"operations"`)
	if marker < 0 {
		return editResponse{}, false
	}
	arr := strings.Index(text[marker:], "[")
	if arr < 0 {
		return editResponse{}, false
	}
	var ops []Operation
	inString := false
	escaped := false
	depth := 0
	objStart := -1
scan:
	for i := marker + arr + 1; i < len(text); i++ {
		ch := text[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			if depth == 0 {
				break scan
			}
			depth--
			if depth == 0 && objStart >= 0 {
				var op Operation
				if err := json.Unmarshal([]byte(text[objStart:i+1]), &op); err == nil {
					ops = append(ops, op)
				}
				objStart = -1
			}
		case ']':
			if depth == 0 {
				break scan
			}
		}
	}
	if len(ops) == 0 {
		return editResponse{}, false
	}
	expl, found := extractExplanation(text)
	if !found {
		expl = partialNote
	}
	return editResponse{Explanation: expl, Operations: ops}, true
}

var explanationPattern = regexp.MustCompile(`"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractExplanation pulls the explanation string out of raw response text
// that no longer parses as JSON.
func extractExplanation(text string) (string, bool) {
	m := explanationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	unquoted, err := strconv.Unquote(`"` + m[1] + `"`)
	if err != nil {
		return m[1], true
	}
	return unquoted, true
}

// stripFences removes a markdown code fence around a response. Structured
// output mode should prevent fences, but the endpoint occasionally emits
// them anyway.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}
