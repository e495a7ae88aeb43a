package prompts

import (
	"context"
	"embed"
	"fmt"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/observers"
)

//go:embed template/*.txt
var templates embed.FS

var promptObserver = observers.NewPromptCallbacks()

// Name identifies an embedded prompt template.
type Name string

const (
	Intent            Name = "intent"
	FieldExtraction   Name = "field_extraction"
	ProductAction     Name = "product_action"
	Navigation        Name = "navigation"
	Category          Name = "category"
	ProductNavigation Name = "product_navigation"
	ApplyFilter       Name = "filter_apply"
	RemoveFilter      Name = "filter_remove"
	UserInfo          Name = "user_info"
	OrderCompletion   Name = "order_completion"
)

// Render formats the named template with vars via the Eino prompt component.
func Render(ctx context.Context, name Name, vars map[string]any) (string, error) {
	raw, err := templates.ReadFile("template/" + string(name) + ".txt")
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", name, err)
	}

	tpl := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(string(raw)))
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      string(name),
		Type:      tpl.GetType(),
		Component: components.ComponentOfPrompt,
	}, promptObserver)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// Transcript renders a template whose only variable is the utterance.
func Transcript(ctx context.Context, name Name, transcript string) (string, error) {
	return Render(ctx, name, map[string]any{"Transcript": sanitize(transcript)})
}

// RenderIntent renders the intent classification prompt.
func RenderIntent(ctx context.Context, transcript string, cc model.CommandContext, categories []string) (string, error) {
	product := ""
	if cc.Product != nil {
		product = cc.Product.Name
	}
	return Render(ctx, Intent, map[string]any{
		"Transcript": sanitize(transcript),
		"Route":      cc.Route,
		"Product":    product,
		"Categories": strings.Join(categories, ", "),
	})
}

// RenderFieldExtraction renders the checkout field extraction prompt.
func RenderFieldExtraction(ctx context.Context, transcript string, ft model.FieldType) (string, error) {
	instruction, ok := fieldInstructions[ft]
	if !ok {
		return "", fmt.Errorf("field extraction prompt: unknown field type %q", ft)
	}
	return Render(ctx, FieldExtraction, map[string]any{
		"Transcript":  sanitize(transcript),
		"FieldType":   string(ft),
		"Instruction": instruction,
	})
}

// RenderProductAction renders the product action prompt.
func RenderProductAction(ctx context.Context, transcript string, current *model.Product, products []model.Product) (string, error) {
	vars := map[string]any{
		"Transcript": sanitize(transcript),
		"Product":    "",
		"Sizes":      "",
		"Products":   productNames(products),
	}
	if current != nil {
		vars["Product"] = current.Name
		vars["Sizes"] = strings.Join(current.Sizes, ", ")
	}
	return Render(ctx, ProductAction, vars)
}

// RenderCategory renders the category disambiguation prompt.
func RenderCategory(ctx context.Context, transcript string, categories []string) (string, error) {
	return Render(ctx, Category, map[string]any{
		"Transcript": sanitize(transcript),
		"Categories": strings.Join(categories, ", "),
	})
}

// RenderProductNavigation renders the product disambiguation prompt.
func RenderProductNavigation(ctx context.Context, transcript string, products []model.Product) (string, error) {
	return Render(ctx, ProductNavigation, map[string]any{
		"Transcript": sanitize(transcript),
		"Products":   products,
	})
}

// RenderApplyFilter renders the filter extraction prompt.
func RenderApplyFilter(ctx context.Context, transcript string, categories []string) (string, error) {
	return Render(ctx, ApplyFilter, map[string]any{
		"Transcript": sanitize(transcript),
		"Categories": strings.Join(categories, ", "),
	})
}

var fieldInstructions = map[model.FieldType]string{
	model.FieldName:       "the customer's full name, title-cased, without filler such as \"my name is\".",
	model.FieldEmail:      "an email address; convert spoken \"at\" to @ and \"dot\" to a period, remove spaces, lowercase.",
	model.FieldAddress:    "a complete shipping address as one line.",
	model.FieldPhone:      "a phone number as digits only; convert spoken numbers to digits.",
	model.FieldCardName:   "the cardholder name exactly as printed on the card, title-cased.",
	model.FieldCardNumber: "a payment card number as digits only; convert spoken numbers to digits.",
	model.FieldExpiryDate: "the card expiry as MM/YY; convert month names to numbers.",
	model.FieldCVV:        "the 3 or 4 digit card security code as digits only.",
}

// quotes would break out of the template's string literal
func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "'")
}

func productNames(products []model.Product) string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
