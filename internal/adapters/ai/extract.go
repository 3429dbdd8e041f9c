package ai

import (
	"encoding/json"
	"strings"

	"steuerpilot/pkg/errors"
)

// ExtractJSONObject recovers a JSON object from model output that may wrap it
// in prose or markdown fences. Order of attempts: direct parse, fence strip,
// balanced-brace scan. The scan tracks string and escape state so braces
// inside quoted values do not unbalance it.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.Wrap(errors.ErrMalformedModelOutput, "empty text")
	}

	if raw, ok := tryParseObject(trimmed); ok {
		return raw, nil
	}

	if stripped := stripCodeFences(trimmed); stripped != trimmed {
		if raw, ok := tryParseObject(stripped); ok {
			return raw, nil
		}
		trimmed = stripped
	}

	if candidate := firstBalancedObject(trimmed); candidate != "" {
		if raw, ok := tryParseObject(candidate); ok {
			return raw, nil
		}
	}

	return nil, errors.Wrap(errors.ErrMalformedModelOutput, "no JSON object found")
}

func tryParseObject(s string) (json.RawMessage, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the fence line
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "JSON" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject returns the first {...} span with balanced braces,
// or "" when none closes before the text ends.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
