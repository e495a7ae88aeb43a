package oracle

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`, true},
		{"array first", `result: [1, {"b": 2}] done`, `[1, {"b": 2}]`, true},
		{"braces in strings", `{"s": "a } b { c"}`, `{"s": "a } b { c"}`, true},
		{"escaped quote", `{"s": "say \"hi\" }"}`, `{"s": "say \"hi\" }"}`, true},
		{"skips invalid bracket prose", `[note] then {"x": true}`, `{"x": true}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"mismatched", `{"a": [1}`, "", false},
		{"no json", "hello", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeJSONSkipsMismatchedShapes(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}
	ok := DecodeJSON(`["cart"] {"intent": "cart"}`, &out)
	assert.True(t, ok)
	assert.Equal(t, "cart", out.Intent)
}

func TestDecodeJSONUsesNumber(t *testing.T) {
	var out map[string]any
	assert.True(t, DecodeJSON(`{"n": 4242424242424242}`, &out))
	assert.Equal(t, json.Number("4242424242424242"), out["n"])
}

func TestDecodeJSONTruncatesHugeInput(t *testing.T) {
	var out map[string]any
	huge := strings.Repeat(" ", maxScanLen) + `{"late": true}`
	assert.False(t, DecodeJSON(huge, &out))
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", Scalar(nil))
	assert.Equal(t, "", Scalar("null"))
	assert.Equal(t, "abc", Scalar(" abc "))
	assert.Equal(t, "12", Scalar(json.Number("12")))
	assert.Equal(t, "true", Scalar(true))
	assert.Equal(t, "", Scalar([]any{1}))
}
