package checkout

import (
	"context"
	"strconv"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
)

// Extractor turns an utterance into one field value.
// An empty value without error means the extractor had nothing to offer.
type Extractor interface {
	Extract(ctx context.Context, transcript string, ft model.FieldType) (model.FieldExtraction, error)
}

// OracleExtractor delegates to the language model.
type OracleExtractor struct {
	Oracle model.Oracle
}

func (e OracleExtractor) Extract(ctx context.Context, transcript string, ft model.FieldType) (model.FieldExtraction, error) {
	if e.Oracle == nil {
		return model.FieldExtraction{Error: "AI not available"}, errx.ErrOracleUnavailable
	}
	return e.Oracle.ExtractField(ctx, transcript, ft)
}

// RuleExtractor is the deterministic fallback. It only answers for its enabled field types.
type RuleExtractor struct {
	fields map[model.FieldType]bool
}

// NewRuleExtractor enables the given step names ("name", "email", ...). "all" enables every field.
func NewRuleExtractor(steps ...string) *RuleExtractor {
	e := &RuleExtractor{fields: map[model.FieldType]bool{}}
	for _, name := range steps {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, "all") {
			for _, s := range Steps {
				if s.collects() {
					e.fields[transitions[s].fieldType] = true
				}
			}
			continue
		}
		if s, ok := ParseStep(name); ok && s.collects() {
			e.fields[transitions[s].fieldType] = true
		}
	}
	return e
}

// Supports reports whether ft is enabled.
func (e *RuleExtractor) Supports(ft model.FieldType) bool {
	return e.fields[ft]
}

func (e *RuleExtractor) Extract(_ context.Context, transcript string, ft model.FieldType) (model.FieldExtraction, error) {
	if !e.fields[ft] {
		return model.FieldExtraction{}, nil
	}

	var v string
	switch ft {
	case model.FieldName, model.FieldCardName:
		name, ok := ExtractName(transcript)
		if !ok {
			return model.FieldExtraction{Error: "Could not extract " + string(ft)}, nil
		}
		v = name
	case model.FieldEmail:
		v = SpokenEmail(transcript)
	case model.FieldPhone, model.FieldCardNumber, model.FieldCVV:
		v = digits(spokenDigits(transcript))
	case model.FieldExpiryDate:
		v = spokenExpiry(transcript)
	default:
		v = collapse(transcript)
	}
	return model.FieldExtraction{Value: v}, nil
}

var digitWords = map[string]string{
	"zero": "0", "oh": "0", "o": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

var monthWords = map[string]string{
	"january": "1", "february": "2", "march": "3", "april": "4", "may": "5", "june": "6",
	"july": "7", "august": "8", "september": "9", "october": "10", "november": "11", "december": "12",
}

func spokenDigits(v string) string {
	words := strings.Fields(strings.ToLower(v))
	for i, w := range words {
		if d, ok := digitWords[strings.Trim(w, ".,")]; ok {
			words[i] = d
		}
	}
	return strings.Join(words, " ")
}

var teenWords = map[string]int{
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// spokenExpiry turns "oh nine twenty six" or "september twenty twenty six"
// into numbers ParseExpiry understands. Runs of single spoken digits are
// paired, so "zero nine two six" reads as "09 26".
func spokenExpiry(v string) string {
	words := strings.Fields(strings.ToLower(v))
	tokens := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := strings.Trim(words[i], ".,")
		if m, ok := monthWords[w]; ok {
			tokens = append(tokens, m)
			continue
		}
		if d, ok := digitWords[w]; ok {
			tokens = append(tokens, d)
			continue
		}
		if n, ok := teenWords[w]; ok {
			tokens = append(tokens, strconv.Itoa(n))
			continue
		}
		if n, ok := tensWords[w]; ok {
			if i+1 < len(words) {
				if d, ok := digitWords[strings.Trim(words[i+1], ".,")]; ok && d != "0" {
					n += int(d[0] - '0')
					i++
				}
			}
			tokens = append(tokens, strconv.Itoa(n))
			continue
		}
		tokens = append(tokens, w)
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case isDigit(t) && i+1 < len(tokens) && isDigit(tokens[i+1]):
			out = append(out, t+tokens[i+1])
			i++
		case t == "20" && i+1 < len(tokens) && len(tokens[i+1]) == 2 && isNumber(tokens[i+1]):
			// "twenty twenty six"
			out = append(out, t+tokens[i+1])
			i++
		default:
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
