// Package llmjson recovers a small structured payload from the raw token
// stream of a language model. Models routinely wrap JSON in code fences,
// surround it with prose, truncate it mid-object, or emit two objects in a
// row; every entry point here degrades instead of failing.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Payload is the structured reply contract with the generator:
// text to speak, chunk ids used for grounding, optional clarifying question.
type Payload struct {
	Text    string
	UsedIDs []string
	Ask     string
}

var (
	openFenceRe  = regexp.MustCompile(`(?i)^\s*` + "```" + `(?:json)?\s*`)
	closeFenceRe = regexp.MustCompile(`\s*` + "```" + `\s*$`)
)

// ParsePayload turns raw accumulated model output into a Payload. It never
// fails: when no JSON can be recovered the whole raw text becomes the
// literal Text field.
func ParsePayload(raw string) Payload {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{UsedIDs: []string{}}
	}

	obj, ok := extractFirstObject(raw)
	if !ok {
		return Payload{Text: raw, UsedIDs: []string{}}
	}

	return coercePayload(raw, obj)
}

// extractFirstObject recovers the first JSON object or array from text.
func extractFirstObject(text string) (any, bool) {
	t := stripFences(text)

	// 1) the whole string is already valid JSON
	if v, ok := tryStrict(t); ok {
		return v, true
	}

	// 2) first fully balanced block, ignoring brackets inside strings
	if block, ok := firstBalancedBlock(t); ok {
		if v, ok := tryStrict(block); ok {
			return v, true
		}
		if v, ok := tryLenient(block); ok {
			return v, true
		}
	}

	// 3) widest span from first open to last close bracket, with any
	// unclosed stack auto-completed (handles truncated output)
	block, ok := widestSpan(t)
	if !ok {
		return nil, false
	}
	block = closeUnbalanced(block)
	if v, ok := tryStrict(block); ok {
		return v, true
	}
	if v, ok := tryLenient(block); ok {
		return v, true
	}

	return nil, false
}

func stripFences(t string) string {
	t = openFenceRe.ReplaceAllString(strings.TrimSpace(t), "")
	t = closeFenceRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

func tryStrict(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// tryLenient repairs common model sloppiness: trailing commas, single
// quotes, unquoted keys.
func tryLenient(s string) (any, bool) {
	fixed, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	return tryStrict(fixed)
}

// firstBalancedBlock scans from the first bracket and returns the first
// fully balanced object/array. Brackets inside string literals are ignored.
// A second concatenated JSON object is cut off here.
func firstBalancedBlock(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	depth := 0
	inStr := false
	escape := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// widestSpan cuts from the first open bracket to the last close bracket.
func widestSpan(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end <= start {
		return "", false
	}
	return strings.TrimSpace(s[start : end+1]), true
}

// closeUnbalanced appends the minimum closing brackets needed to balance
// the block, ignoring brackets inside string literals.
func closeUnbalanced(s string) string {
	var stack []byte
	inStr := false
	escape := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if n := len(stack); n > 0 {
				top := stack[n-1]
				if (top == '{' && ch == '}') || (top == '[' && ch == ']') {
					stack = stack[:n-1]
				}
				// mismatched close: leave it to the lenient parser
			}
		}
	}

	var closing strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closing.WriteByte('}')
		} else {
			closing.WriteByte(']')
		}
	}
	return s + closing.String()
}

// coercePayload maps a recovered JSON value onto the payload contract.
// Non-object values fall back to literal-text passthrough; missing keys
// default to empty; a bare string used_ids becomes a one-element list.
func coercePayload(raw string, v any) Payload {
	obj, ok := v.(map[string]any)
	if !ok {
		return Payload{Text: raw, UsedIDs: []string{}}
	}

	p := Payload{
		Text:    asString(obj["text"]),
		Ask:     asString(obj["ask"]),
		UsedIDs: []string{},
	}

	switch ids := obj["used_ids"].(type) {
	case string:
		if ids != "" {
			p.UsedIDs = []string{ids}
		}
	case []any:
		for _, id := range ids {
			if s := asString(id); s != "" {
				p.UsedIDs = append(p.UsedIDs, s)
			}
		}
	}

	return p
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
