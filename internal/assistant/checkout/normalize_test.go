package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExpiry(t *testing.T) {
	cases := map[string]string{
		"9 2026":              "09/26",
		"09/26":               "09/26",
		"expires 12 of 27":    "12/27",
		"0926":                "09/26",
		"month 3 year 2030 x": "03/30",
		"1 5":                 "01/05",
	}
	for in, want := range cases {
		got, ok := ParseExpiry(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "next year", "13 2026", "0 26", "2026"} {
		_, ok := ParseExpiry(in)
		assert.False(t, ok, in)
	}
}

func TestGroupCardNumber(t *testing.T) {
	assert.Equal(t, "4242 4242 4242 4242", GroupCardNumber("4242424242424242"))
	assert.Equal(t, "3782 8224 6310 005", GroupCardNumber("378282246310005"))
}

func TestSpokenEmail(t *testing.T) {
	assert.Equal(t, "john.doe@gmail.com", SpokenEmail("John dot Doe at Gmail dot com"))
	assert.Equal(t, "ann@example.com", SpokenEmail("ann@example.com"))
}

func TestExtractName(t *testing.T) {
	cases := map[string]string{
		"my name is john smith": "John Smith",
		"I'm ann lee":           "Ann Lee",
		"call me   bob":         "Bob",
		"this is Mary Jane.":    "Mary Jane",
		"Peter Parker":          "Peter Parker",
	}
	for in, want := range cases {
		got, ok := ExtractName(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "x", "my name is 42", "it's r2-d2"} {
		_, ok := ExtractName(in)
		assert.False(t, ok, in)
	}
}

func TestNormalizers(t *testing.T) {
	v, _, ok := normalizePhone("(555) 123-4567")
	assert.True(t, ok)
	assert.Equal(t, "5551234567", v)

	_, reprompt, ok := normalizeCVV("12345")
	assert.False(t, ok)
	assert.Equal(t, RepromptCVV, reprompt)

	v, _, ok = normalizeEmail("Ann at Example dot com")
	assert.True(t, ok)
	assert.Equal(t, "ann@example.com", v)

	_, _, ok = normalizeName("123")
	assert.False(t, ok)

	v, _, ok = normalizeText("  1   Main   St ")
	assert.True(t, ok)
	assert.Equal(t, "1 Main St", v)
}

func TestRuleExtractorSupports(t *testing.T) {
	e := NewRuleExtractor("name", "cvv", "bogus")
	assert.True(t, e.Supports("NAME"))
	assert.True(t, e.Supports("CVV"))
	assert.False(t, e.Supports("EMAIL"))

	all := NewRuleExtractor("all")
	for _, s := range Steps {
		if s.collects() {
			assert.True(t, all.Supports(transitions[s].fieldType), s.String())
		}
	}
}

func TestParseStep(t *testing.T) {
	s, ok := ParseStep("cardNumber")
	assert.True(t, ok)
	assert.Equal(t, StepCardNumber, s)
	_, ok = ParseStep("nope")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Step(99).String())
}
