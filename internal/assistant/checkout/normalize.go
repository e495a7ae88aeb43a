package checkout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// normalizer validates an extracted value and returns its stored form.
// When ok is false, reprompt (if set) is spoken instead of the generic re-prompt.
type normalizer func(v string) (value, reprompt string, ok bool)

var (
	validate  = validator.New()
	numberRe  = regexp.MustCompile(`\d+`)
	letterRe  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	spaceRe   = regexp.MustCompile(`\s+`)
	namePrefs = []string{"my name is", "my name's", "i'm", "i am", "call me", "it's", "this is"}
)

func normalizeText(v string) (string, string, bool) {
	v = collapse(v)
	return v, "", v != ""
}

func normalizeName(v string) (string, string, bool) {
	v = collapse(v)
	if v == "" || !strings.ContainsFunc(v, unicode.IsLetter) {
		return "", "", false
	}
	return v, "", true
}

func normalizeEmail(v string) (string, string, bool) {
	v = strings.ToLower(SpokenEmail(v))
	if err := validate.Var(v, "required,email"); err != nil {
		return "", RepromptEmail, false
	}
	return v, "", true
}

func normalizePhone(v string) (string, string, bool) {
	d := digits(v)
	if len(d) < 10 {
		return "", RepromptPhone, false
	}
	return d, "", true
}

func normalizeCardNumber(v string) (string, string, bool) {
	d := digits(v)
	if len(d) < 13 || len(d) > 19 {
		return "", RepromptCardNumber, false
	}
	return GroupCardNumber(d), "", true
}

func normalizeCVV(v string) (string, string, bool) {
	d := digits(v)
	if len(d) < 3 || len(d) > 4 {
		return "", RepromptCVV, false
	}
	return d, "", true
}

func normalizeExpiry(v string) (string, string, bool) {
	out, ok := ParseExpiry(v)
	if !ok {
		return "", RepromptExpiryDate, false
	}
	return out, "", true
}

// ParseExpiry reads the first two numbers in v as month and year and formats them as MM/YY.
// A lone four digit number is read as MMYY.
func ParseExpiry(v string) (string, bool) {
	nums := numberRe.FindAllString(v, -1)
	var month, year string
	switch {
	case len(nums) >= 2:
		month, year = nums[0], nums[1]
	case len(nums) == 1 && len(nums[0]) == 4:
		month, year = nums[0][:2], nums[0][2:]
	default:
		return "", false
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	if len(year) > 2 {
		year = year[len(year)-2:]
	}
	if len(year) == 1 {
		year = "0" + year
	}
	return fmt.Sprintf("%02d/%s", m, year), true
}

// GroupCardNumber splits digits into space separated blocks of four.
func GroupCardNumber(d string) string {
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SpokenEmail turns "john at gmail dot com" into "john@gmail.com".
func SpokenEmail(v string) string {
	v = " " + strings.ToLower(strings.TrimSpace(v)) + " "
	v = strings.ReplaceAll(v, " at ", "@")
	v = strings.ReplaceAll(v, " dot ", ".")
	return strings.Join(strings.Fields(v), "")
}

// ExtractName strips introductory phrases and title-cases the remainder.
// It accepts letters and spaces only.
func ExtractName(transcript string) (string, bool) {
	cleaned := strings.ToLower(collapse(transcript))
	cleaned = strings.TrimRight(cleaned, ".!?")
	for _, p := range namePrefs {
		if strings.HasPrefix(cleaned, p+" ") {
			cleaned = strings.TrimSpace(cleaned[len(p):])
			break
		}
	}
	if len(cleaned) < 2 || !letterRe.MatchString(cleaned) {
		return "", false
	}

	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " "), true
}

func digits(v string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
}

func collapse(v string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(v, " "))
}
