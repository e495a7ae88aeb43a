package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/oracle"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// IntentHandler acts on one classified utterance.
// It reports false with a nil error when the utterance did not match.
type IntentHandler interface {
	Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error)
}

// HandlerFunc adapts a function to IntentHandler.
type HandlerFunc func(ctx context.Context, transcript string, cc model.CommandContext) (bool, error)

func (f HandlerFunc) Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error) {
	return f(ctx, transcript, cc)
}

// Catalog is the product catalog plus the fuzzy lookups used before asking the oracle.
type Catalog interface {
	model.Catalog
	MatchProduct(text string) (model.Product, bool)
	MatchCategory(text string) (string, bool)
}

// Deps are the collaborators shared by every handler. Nil members disable
// the behaviour that needs them.
type Deps struct {
	Oracle    model.Oracle
	Speaker   model.Speaker
	Catalog   Catalog
	Navigator model.Navigator
	Cart      model.Cart
	Selection model.ProductSelection
	Filters   model.Filters
	UserInfo  model.UserInfoStore
	Notifier  model.Notifier
	Order     model.OrderTrigger
}

// Set is the handler for each intent.
type Set map[model.Intent]IntentHandler

// NewSet builds the handler for every intent except general_command,
// which the dispatcher resolves by falling back to navigation and cart.
func NewSet(d Deps) Set {
	return Set{
		model.IntentNavigation:         &Navigation{Deps: d},
		model.IntentCart:               &Cart{Deps: d},
		model.IntentCategoryNavigation: &Category{Deps: d},
		model.IntentProductNavigation:  &ProductDetail{Deps: d},
		model.IntentProductAction:      &ProductAction{Deps: d},
		model.IntentApplyFilter:        &ApplyFilter{Deps: d},
		model.IntentRemoveFilter:       &RemoveFilter{Deps: d},
		model.IntentClearFilters:       &ClearFilters{Deps: d},
		model.IntentUserInfo:           &UserInfo{Deps: d},
		model.IntentOrderCompletion:    &OrderCompletion{Deps: d},
	}
}

func (d Deps) speak(ctx context.Context, text string) {
	if d.Speaker == nil || text == "" {
		return
	}
	d.Speaker.Speak(ctx, text)
}

func (d Deps) navigate(route string) {
	if d.Navigator == nil {
		return
	}
	logx.Debug().Str("route", route).Msg("Navigating")
	d.Navigator.Navigate(route)
}

// askJSON sends a rendered prompt to the oracle and decodes the reply.
// Without an oracle it reports no result.
func (d Deps) askJSON(ctx context.Context, prompt string, err error, out any) (bool, error) {
	if err != nil {
		return false, err
	}
	if d.Oracle == nil {
		return false, nil
	}
	return d.Oracle.CompleteJSON(ctx, prompt, out)
}

func hasAny(lower string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a": 1, "an": 1, "single": 1, "couple": 2, "pair": 2,
}

// intValue reads a positive count from a decoded JSON value.
func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), i > 0
		}
		if f, err := t.Float64(); err == nil {
			return int(f), int(f) > 0
		}
	case float64:
		return int(t), int(t) > 0
	case string:
		s := strings.ToLower(oracle.Scalar(t))
		if n, err := strconv.Atoi(s); err == nil {
			return n, n > 0
		}
		if n, ok := wordNumbers[s]; ok {
			return n, true
		}
	}
	return 0, false
}

// floatValue reads an optional number from a decoded JSON value.
func floatValue(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case float64:
		f = t
	case string:
		s := strings.TrimPrefix(oracle.Scalar(t), "$")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

func joinWords(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
