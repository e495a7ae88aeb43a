package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/oracle"
	"github.com/arckit11/v-novaa/internal/assistant/prompts"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

var destinations = map[string]string{
	"home":     model.RouteHome,
	"products": model.RouteProducts,
	"cart":     model.RouteCart,
	"payment":  model.RoutePayment,
	"checkout": model.RoutePayment,
}

var pageNames = map[string]string{
	model.RouteHome:     "the home page",
	model.RouteProducts: "all products",
	model.RouteCart:     "your cart",
	model.RoutePayment:  "checkout",
}

// Navigation moves between the top-level storefront pages.
type Navigation struct {
	Deps
}

func (h *Navigation) Handle(ctx context.Context, transcript string, _ model.CommandContext) (bool, error) {
	route, ok := navigationKeyword(strings.ToLower(transcript))
	if !ok {
		var res struct {
			Destination any `json:"destination"`
		}
		prompt, err := prompts.Transcript(ctx, prompts.Navigation, transcript)
		found, err := h.askJSON(ctx, prompt, err, &res)
		if err != nil {
			return false, fmt.Errorf("navigation: %w", err)
		}
		if !found {
			return false, nil
		}
		route, ok = destinations[strings.ToLower(oracle.Scalar(res.Destination))]
		if !ok {
			return false, nil
		}
	}

	h.navigate(route)
	h.speak(ctx, "Opening "+pageNames[route]+".")
	return true, nil
}

func navigationKeyword(lower string) (string, bool) {
	switch {
	case hasAny(lower, "go home", "home page", "homepage", "main page"):
		return model.RouteHome, true
	case mentionsCart(lower):
		return model.RouteCart, true
	case hasAny(lower, "checkout", "check out", "payment page"):
		return model.RoutePayment, true
	case hasAny(lower, "all products", "every product", "everything", "browse", "catalog"):
		return model.RouteProducts, true
	}
	return "", false
}

func mentionsCart(lower string) bool {
	return hasAny(lower, "cart", "basket", "shopping bag")
}

// Cart opens the cart page and reads back its size.
type Cart struct {
	Deps
}

func (h *Cart) Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error) {
	lower := strings.ToLower(transcript)
	if !mentionsCart(lower) && !hasAny(lower, "my order", "what did i add", "what have i got") {
		return false, nil
	}

	h.navigate(model.RouteCart)
	items := 0
	for _, it := range cc.Cart {
		items += it.Quantity
	}
	switch items {
	case 0:
		h.speak(ctx, "Your cart is empty.")
	case 1:
		h.speak(ctx, "You have 1 item in your cart.")
	default:
		h.speak(ctx, fmt.Sprintf("You have %d items in your cart.", items))
	}
	return true, nil
}

// Category opens a category listing.
type Category struct {
	Deps
}

func (h *Category) Handle(ctx context.Context, transcript string, _ model.CommandContext) (bool, error) {
	if h.Catalog == nil {
		return false, nil
	}
	category, ok := h.Catalog.MatchCategory(transcript)
	if !ok {
		var res struct {
			Category any `json:"category"`
		}
		prompt, err := prompts.RenderCategory(ctx, transcript, h.Catalog.Categories())
		found, err := h.askJSON(ctx, prompt, err, &res)
		if err != nil {
			return false, fmt.Errorf("category navigation: %w", err)
		}
		if !found {
			return false, nil
		}
		category, ok = canonicalCategory(h.Catalog, oracle.Scalar(res.Category))
		if !ok {
			logx.Debug().Str("transcript", transcript).Msg("No category matched")
			return false, nil
		}
	}

	h.navigate(model.CategoryRoute(category))
	h.speak(ctx, "Showing "+category+" products.")
	return true, nil
}

func canonicalCategory(c Catalog, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, cat := range c.Categories() {
		if strings.EqualFold(cat, name) {
			return cat, true
		}
	}
	return "", false
}

// ProductDetail opens a product page.
type ProductDetail struct {
	Deps
}

func (h *ProductDetail) Handle(ctx context.Context, transcript string, _ model.CommandContext) (bool, error) {
	if h.Catalog == nil {
		return false, nil
	}
	p, ok := h.Catalog.MatchProduct(transcript)
	if !ok {
		var res struct {
			ProductID any `json:"productId"`
		}
		prompt, err := prompts.RenderProductNavigation(ctx, transcript, h.Catalog.Products())
		found, err := h.askJSON(ctx, prompt, err, &res)
		if err != nil {
			return false, fmt.Errorf("product navigation: %w", err)
		}
		if !found {
			return false, nil
		}
		p, ok = h.Catalog.Product(oracle.Scalar(res.ProductID))
		if !ok {
			logx.Debug().Str("transcript", transcript).Msg("No product matched")
			return false, nil
		}
	}

	h.navigate(model.ProductRoute(p.ID))
	h.speak(ctx, "Here is the "+p.Name+".")
	return true, nil
}
