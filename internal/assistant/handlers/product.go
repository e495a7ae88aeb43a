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

const (
	actionSize      = "size"
	actionQuantity  = "quantity"
	actionAddToCart = "addtocart"
)

type productAction struct {
	Action      any `json:"action"`
	Size        any `json:"size"`
	Quantity    any `json:"quantity"`
	ProductName any `json:"productName"`
}

// ProductAction selects sizes and quantities and adds products to the cart.
type ProductAction struct {
	Deps
}

func (h *ProductAction) Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error) {
	if h.Catalog == nil {
		return false, nil
	}

	var res productAction
	prompt, err := prompts.RenderProductAction(ctx, transcript, cc.Product, h.Catalog.Products())
	found, err := h.askJSON(ctx, prompt, err, &res)
	if err != nil {
		return false, fmt.Errorf("product action: %w", err)
	}
	if !found {
		return false, nil
	}

	action := strings.ToLower(oracle.Scalar(res.Action))
	if action == "" || action == "none" {
		return false, nil
	}

	p, current, ok := h.resolveProduct(transcript, oracle.Scalar(res.ProductName), cc)
	if !ok {
		logx.Debug().Str("transcript", transcript).Str("action", action).Msg("No product to act on")
		h.speak(ctx, "Which product do you mean?")
		return false, nil
	}

	spoken := oracle.Scalar(res.Size)
	switch action {
	case actionSize:
		size, ok := p.MatchSize(spoken)
		if !ok {
			h.unknownSize(ctx, p, spoken)
			return false, nil
		}
		if h.Selection != nil && current {
			h.Selection.SelectSize(size)
		}
		h.speak(ctx, "Size "+size+" selected.")
		return true, nil

	case actionQuantity:
		qty, ok := intValue(res.Quantity)
		if !ok {
			return false, nil
		}
		if h.Selection != nil && current {
			h.Selection.SetQuantity(qty)
		}
		h.speak(ctx, fmt.Sprintf("Quantity set to %d.", qty))
		return true, nil

	case actionAddToCart:
		return h.addToCart(ctx, p, current, spoken, res.Quantity, cc)
	}

	logx.Debug().Str("action", action).Msg("Unknown product action")
	return false, nil
}

// resolveProduct prefers a product named in the utterance over the one on screen.
func (h *ProductAction) resolveProduct(transcript, named string, cc model.CommandContext) (model.Product, bool, bool) {
	isCurrent := func(p model.Product) bool { return cc.Product != nil && cc.Product.ID == p.ID }

	if named != "" {
		if p, ok := h.Catalog.MatchProduct(named); ok {
			return p, isCurrent(p), true
		}
	}
	if cc.Product != nil {
		return *cc.Product, true, true
	}
	if p, ok := h.Catalog.MatchProduct(transcript); ok {
		return p, isCurrent(p), true
	}
	return model.Product{}, false, false
}

// addToCart resolves the size spoken > selected on screen > ask the shopper.
func (h *ProductAction) addToCart(ctx context.Context, p model.Product, current bool, spoken string, quantity any, cc model.CommandContext) (bool, error) {
	if h.Cart == nil {
		return false, nil
	}

	size := ""
	if p.HasSizes() {
		switch {
		case spoken != "":
			matched, ok := p.MatchSize(spoken)
			if !ok {
				h.unknownSize(ctx, p, spoken)
				return false, nil
			}
			size = matched
		case current && cc.SelectedSize != "":
			size = cc.SelectedSize
		default:
			h.speak(ctx, fmt.Sprintf("Which size would you like for the %s? Available sizes are %s.", p.Name, joinWords(p.Sizes)))
			return true, nil
		}
	}

	qty, ok := intValue(quantity)
	if !ok {
		qty = 1
		if current && cc.Quantity > 0 {
			qty = cc.Quantity
		}
	}

	h.Cart.AddToCart(p, size, qty)
	logx.Info().
		Str("product_id", p.ID).
		Str("size", size).
		Int("quantity", qty).
		Msg("Added to cart")

	msg := fmt.Sprintf("Added %d %s to your cart.", qty, p.Name)
	if size != "" {
		msg = fmt.Sprintf("Added %d %s in size %s to your cart.", qty, p.Name, size)
	}
	h.speak(ctx, msg)
	return true, nil
}

func (h *ProductAction) unknownSize(ctx context.Context, p model.Product, spoken string) {
	logx.Info().
		Str("product_id", p.ID).
		Str("size", spoken).
		Strs("available_sizes", p.Sizes).
		Msg("Requested size not available")
	if p.HasSizes() {
		h.speak(ctx, fmt.Sprintf("Sorry, %s is available in %s.", p.Name, joinWords(p.Sizes)))
	}
}
