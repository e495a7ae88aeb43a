package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// UsageCost is the USD cost of one oracle call.
type UsageCost struct {
	PromptTokens     int
	CompletionTokens int
	InputUSD         float64
	OutputUSD        float64
	TotalUSD         float64
}

// Gemini text pricing per 1M tokens.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash":      {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash-lite": {InputPerM: 0.075, OutputPerM: 0.30},
}

// ResolvePricing returns pricing for a model, zero when unknown.
func ResolvePricing(model string) Pricing {
	return defaultPricing[model]
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) UsageCost {
	if usage == nil {
		return UsageCost{}
	}
	c := UsageCost{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		InputUSD:         p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0,
		OutputUSD:        p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0,
	}
	c.TotalUSD = c.InputUSD + c.OutputUSD
	return c
}
