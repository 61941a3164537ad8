// Package sanitize provides a blunt defense-in-depth cleanser for
// caller-supplied analysis payloads. It is context-free (no awareness of
// HTML vs SQL vs plain text) and is not a substitute for parameterized
// queries or output encoding.
package sanitize

import (
	"regexp"
	"strings"
)

const maxStringLength = 1000

var scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

// sqlMetaReplacer strips the SQL metacharacters ' " ; \
var sqlMetaReplacer = strings.NewReplacer("'", "", `"`, "", ";", "", `\`, "")

// String cleans a single string: SQL metacharacters and script blocks
// are stripped, then the result is truncated to 1000 characters.
func String(s string) string {
	s = sqlMetaReplacer.Replace(s)
	s = scriptBlockRe.ReplaceAllString(s, "")

	runes := []rune(s)
	if len(runes) > maxStringLength {
		return string(runes[:maxStringLength])
	}
	return s
}

// Value recursively sanitizes an arbitrary payload value. Strings go
// through String, slices are mapped element-wise preserving order, and
// maps are rebuilt with both keys and values sanitized. Any other type
// is returned unchanged.
func Value(v any) any {
	switch val := v.(type) {
	case string:
		return String(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[String(k)] = Value(item)
		}
		return out
	default:
		return v
	}
}

// Details sanitizes an audit detail map in place-equivalent fashion,
// returning a new map. A nil map stays nil.
func Details(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out, _ := Value(details).(map[string]any)
	return out
}
