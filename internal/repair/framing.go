package repair

import (
	"strings"
	"unicode"
)

const codeFence = "```"

// NormalizeFraming trims text and fixes its outer framing:
//   - a Markdown code fence is removed, keeping the fenced body
//   - a body that starts with a quote, or ends with "}" without starting with
//     "{", is wrapped in braces (its wrapper was truncated)
//   - a JSON object preceded by prose is cut out of the surrounding text
func NormalizeFraming(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if !startsStructured(trimmed) {
		trimmed = stripCodeFence(trimmed)
	}
	if trimmed == "" || startsStructured(trimmed) {
		return trimmed
	}

	if strings.HasPrefix(trimmed, `"`) {
		return wrapBraces(trimmed)
	}
	if strings.HasSuffix(trimmed, "}") {
		if start := strings.Index(trimmed, "{"); start > 0 && !strings.Contains(trimmed[:start], `"`) {
			return trimmed[start:]
		}
		return wrapBraces(trimmed)
	}
	return extractEmbedded(trimmed)
}

// wrapBraces adds the missing outer braces. When the closing brace survived
// (more closers than openers) only the opening one is added.
func wrapBraces(text string) string {
	if strings.HasSuffix(text, "}") && strings.Count(text, "}") > strings.Count(text, "{") {
		return "{" + text
	}
	return "{" + text + "}"
}

func startsStructured(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// stripCodeFence returns the body of the first fenced block in text, or text
// unchanged when there is no fence. An unterminated fence runs to the end.
func stripCodeFence(text string) string {
	start := strings.Index(text, codeFence)
	if start < 0 {
		return text
	}
	body := text[start+len(codeFence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isFenceTag(body[:nl]) {
		body = body[nl+1:]
	} else if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if end := strings.Index(body, codeFence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isFenceTag(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) > 20 {
		return false
	}
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// extractEmbedded cuts the outermost {...} or [...] span out of text.
func extractEmbedded(text string) string {
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}
	return text
}

var smartQuotes = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‟", `"`,
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
)

func replaceSmartQuotes(text string) string {
	return smartQuotes.Replace(text)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
