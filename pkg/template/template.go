// Package template substitutes {{path}} tokens in action strings and JSON bodies.
package template

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// Lookup resolves a dotted path. ok=false means the path is undefined.
type Lookup func(path string) (value any, ok bool)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// HasTokens reports whether text contains at least one {{path}} token.
func HasTokens(text string) bool {
	return tokenPattern.MatchString(text)
}

// Replace substitutes every {{path}} token in text. Undefined paths are left verbatim and
// null values render as the empty string.
func Replace(text string, lookup Lookup) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		value, ok := lookup(pathOf(token))
		if !ok {
			return token
		}

		return Stringify(value)
	})
}

// Resolve returns the raw value when text is exactly one token, so numbers and objects keep
// their type. Any other text goes through Replace.
func Resolve(text string, lookup Lookup) any {
	trimmed := strings.TrimSpace(text)

	if match := tokenPattern.FindStringSubmatchIndex(trimmed); match != nil && match[0] == 0 && match[1] == len(trimmed) {
		if value, ok := lookup(trimmed[match[2]:match[3]]); ok {
			return value
		}

		return text
	}

	return Replace(text, lookup)
}

// ReplaceJSON substitutes tokens inside a serialized JSON document. A string literal that is
// exactly one token becomes the JSON encoding of the resolved value; tokens embedded in longer
// strings are replaced by the escaped string form. Undefined tokens are left verbatim.
func ReplaceJSON(body string, lookup Lookup) string {
	if !strings.Contains(body, "{{") {
		return body
	}

	var out strings.Builder

	for i := 0; i < len(body); {
		if body[i] != '"' {
			next := strings.IndexByte(body[i:], '"')
			if next < 0 {
				out.WriteString(replaceBare(body[i:], lookup))

				break
			}

			out.WriteString(replaceBare(body[i:i+next], lookup))
			i += next

			continue
		}

		end := closingQuote(body, i)
		literal := body[i : end+1]
		out.WriteString(replaceLiteral(literal, lookup))
		i = end + 1
	}

	return out.String()
}

// replaceLiteral handles one quoted JSON string including its quotes.
func replaceLiteral(literal string, lookup Lookup) string {
	var content string
	if err := json.Unmarshal([]byte(literal), &content); err != nil {
		return literal
	}

	if match := tokenPattern.FindStringSubmatchIndex(content); match != nil && match[0] == 0 && match[1] == len(content) {
		value, ok := lookup(content[match[2]:match[3]])
		if !ok {
			return literal
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return literal
		}

		return string(encoded)
	}

	if !HasTokens(content) {
		return literal
	}

	encoded, err := json.Marshal(Replace(content, lookup))
	if err != nil {
		return literal
	}

	return string(encoded)
}

// replaceBare handles tokens written outside string literals, e.g. {"n": {{deal.value}}}.
func replaceBare(segment string, lookup Lookup) string {
	return tokenPattern.ReplaceAllStringFunc(segment, func(token string) string {
		value, ok := lookup(pathOf(token))
		if !ok {
			return token
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return token
		}

		return string(encoded)
	})
}

func closingQuote(body string, start int) int {
	for i := start + 1; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}

	return len(body) - 1
}

func pathOf(token string) string {
	return strings.TrimSpace(token[2 : len(token)-2])
}

// Stringify renders a resolved value for text substitution.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any, []string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	default:
		return cast.ToString(v)
	}
}
