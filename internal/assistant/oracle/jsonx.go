package oracle

import (
	"encoding/json"
	"strings"

	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// basic safety limits to avoid pathological model output
const (
	maxScanLen    = 64 * 1024
	maxCandidates = 32
)

// ExtractJSON returns the first balanced JSON object or array in text.
// Surrounding prose and markdown fences are ignored.
func ExtractJSON(text string) (string, bool) {
	for _, c := range candidates(text) {
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

// DecodeJSON unmarshals the first balanced JSON value in text that fits out.
// Numbers decode as json.Number when out holds interface values.
func DecodeJSON(text string, out any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "oracle_json").Msgf("panic recovered: %v", r)
			ok = false
		}
	}()

	for _, c := range candidates(text) {
		if !json.Valid([]byte(c)) {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(c))
		dec.UseNumber()
		if err := dec.Decode(out); err == nil {
			return true
		}
	}
	return false
}

func candidates(text string) []string {
	if len(text) > maxScanLen {
		logx.Warn().Str("component", "oracle_json").Int("orig_len", len(text)).Msg("model output truncated before scan")
		text = text[:maxScanLen]
	}

	var out []string
	for start := 0; start < len(text) && len(out) < maxCandidates; start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		if end, ok := matchClose(text, start); ok {
			out = append(out, text[start:end+1])
		}
	}
	return out
}

// matchClose finds the index closing the bracket at start, skipping string literals.
func matchClose(s string, start int) (int, bool) {
	stack := make([]byte, 0, 8)
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Scalar renders a decoded JSON scalar as text; null and "null" become empty.
func Scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}
		return s
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
