package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/oracle"
	"github.com/arckit11/v-novaa/internal/assistant/prompts"
)

var sortOptions = map[string]string{
	"price-asc":  "price-asc",
	"price-desc": "price-desc",
	"rating":     "rating",
}

var filterKeys = map[string]string{
	"category":   model.FilterCategory,
	"categories": model.FilterCategory,
	"price":      model.FilterPrice,
	"minprice":   model.FilterPrice,
	"maxprice":   model.FilterPrice,
	"rating":     model.FilterRating,
	"minrating":  model.FilterRating,
	"sort":       model.FilterSort,
	"sortby":     model.FilterSort,
}

type filterRequest struct {
	Category  any `json:"category"`
	MinPrice  any `json:"minPrice"`
	MaxPrice  any `json:"maxPrice"`
	MinRating any `json:"minRating"`
	SortBy    any `json:"sortBy"`
}

// ApplyFilter narrows the product listing.
type ApplyFilter struct {
	Deps
}

func (h *ApplyFilter) Handle(ctx context.Context, transcript string, cc model.CommandContext) (bool, error) {
	if h.Filters == nil {
		return false, nil
	}

	var categories []string
	if h.Catalog != nil {
		categories = h.Catalog.Categories()
	}
	var res filterRequest
	prompt, err := prompts.RenderApplyFilter(ctx, transcript, categories)
	found, err := h.askJSON(ctx, prompt, err, &res)
	if err != nil {
		return false, fmt.Errorf("apply filter: %w", err)
	}
	if !found {
		return false, nil
	}

	var fs model.FilterSet
	if h.Catalog != nil {
		if cat, ok := canonicalCategory(h.Catalog, oracle.Scalar(res.Category)); ok {
			fs.Category = cat
		}
	}
	fs.MinPrice = floatValue(res.MinPrice)
	fs.MaxPrice = floatValue(res.MaxPrice)
	fs.MinRating = floatValue(res.MinRating)
	fs.SortBy = sortOptions[strings.ToLower(oracle.Scalar(res.SortBy))]
	if fs.Empty() {
		return false, nil
	}

	h.Filters.ApplyFilters(fs)
	if !strings.HasPrefix(cc.Route, model.RouteProducts) {
		h.navigate(model.RouteProducts)
	}
	h.speak(ctx, "Filters applied.")
	return true, nil
}

// RemoveFilter clears individual filters.
type RemoveFilter struct {
	Deps
}

func (h *RemoveFilter) Handle(ctx context.Context, transcript string, _ model.CommandContext) (bool, error) {
	if h.Filters == nil {
		return false, nil
	}

	var res struct {
		Remove []any `json:"remove"`
	}
	prompt, err := prompts.Transcript(ctx, prompts.RemoveFilter, transcript)
	found, err := h.askJSON(ctx, prompt, err, &res)
	if err != nil {
		return false, fmt.Errorf("remove filter: %w", err)
	}

	var keys []string
	if found {
		keys = removalKeys(res.Remove)
	}
	if len(keys) == 0 {
		keys = spokenFilterKeys(strings.ToLower(transcript))
	}
	if len(keys) == 0 {
		return false, nil
	}

	h.Filters.RemoveFilters(keys)
	h.speak(ctx, "Removed the "+joinWords(keys)+" filter.")
	return true, nil
}

func removalKeys(raw []any) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, v := range raw {
		k, ok := filterKeys[strings.ToLower(oracle.Scalar(v))]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func spokenFilterKeys(lower string) []string {
	var keys []string
	for _, k := range []string{model.FilterCategory, model.FilterPrice, model.FilterRating, model.FilterSort} {
		if strings.Contains(lower, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ClearFilters resets every filter without consulting the oracle.
type ClearFilters struct {
	Deps
}

func (h *ClearFilters) Handle(ctx context.Context, _ string, _ model.CommandContext) (bool, error) {
	if h.Filters == nil {
		return false, nil
	}
	h.Filters.ClearFilters()
	h.speak(ctx, "All filters cleared.")
	return true, nil
}
