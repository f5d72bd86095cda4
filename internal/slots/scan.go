package slots

import (
	"regexp"
	"strings"

	"github.com/trymeuj/aiva/internal/catalog"
)

// scanFallback is the best-effort extraction path for unparsable model
// replies. It looks for "name: value" / "name = value" patterns in the
// reply, and for a token following a literal mention of the parameter name
// in the raw user text. Returning nothing is a valid outcome.
func scanFallback(replyText, userText string, specs []catalog.ParameterSpec) map[string]any {
	extracted := make(map[string]any)

	for _, spec := range specs {
		name := spec.Name

		if v, ok := scanKeyValue(replyText, name); ok {
			extracted[name] = v
			continue
		}
		if v, ok := scanAdjacentToken(userText, name); ok {
			extracted[name] = v
		}
	}
	return extracted
}

func scanKeyValue(text, name string) (string, bool) {
	if text == "" {
		return "", false
	}
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(name) + `\s*[:=]\s*["']?([^"',\n]+)["']?`)
	if err != nil {
		return "", false
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func scanAdjacentToken(userText, name string) (string, bool) {
	mention, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil || !mention.MatchString(userText) {
		return "", false
	}
	words := strings.Fields(userText)
	for i, word := range words {
		if !mention.MatchString(word) {
			continue
		}
		if i+1 < len(words) {
			return strings.Trim(words[i+1], `.,":;`), true
		}
		return "", false
	}
	return "", false
}
