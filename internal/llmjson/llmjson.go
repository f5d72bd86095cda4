// Package llmjson extracts structured payloads from language-model output.
// Model replies routinely wrap the JSON we asked for in markdown fences,
// prose, or trailing commentary; every caller that expects JSON goes
// through this package so the failure path is handled in one place.
package llmjson

import (
	"encoding/json"
	"strings"
)

// ExtractObject returns the first well-formed JSON object substring of text,
// tolerating code fences and surrounding prose. ok is false when no
// parseable object is present.
func ExtractObject(text string) (string, bool) {
	return extract(text, '{', '}')
}

// ExtractArray returns the first well-formed JSON array substring of text.
func ExtractArray(text string) (string, bool) {
	return extract(text, '[', ']')
}

// DecodeObject extracts and unmarshals the first JSON object in text into v.
func DecodeObject(text string, v any) bool {
	raw, ok := ExtractObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// DecodeArray extracts and unmarshals the first JSON array in text into v.
func DecodeArray(text string, v any) bool {
	raw, ok := ExtractArray(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

func extract(text string, open, close byte) (string, bool) {
	text = stripFences(text)
	for start := 0; start < len(text); start++ {
		if text[start] != open {
			continue
		}
		// Walk forward balancing delimiters, respecting strings.
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					// Balanced but invalid; try the next opener.
					i = len(text)
				}
			}
		}
	}
	return "", false
}

// stripFences removes markdown code fence lines so a fenced payload parses
// the same as a bare one. Non-fence content is left untouched.
func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
