package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/observers"
	"github.com/arckit11/v-novaa/internal/assistant/prompts"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

const (
	NodeOracleInput = "oracle_input"
	NodeOracleModel = "oracle_model"

	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

const systemPrompt = "You classify and extract structured data from short voice commands " +
	"spoken to an online store assistant. Follow the output format exactly and add no commentary."

// Adapter wraps the chat model with retry, JSON recovery and cost logging.
type Adapter struct {
	runnable   compose.Runnable[string, *schema.Message]
	cfg        model.OracleModelConfig
	pricing    model.Pricing
	handler    einocb.Handler
	categories []string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCategories sets the category names offered to the intent classifier.
func WithCategories(categories []string) Option {
	return func(a *Adapter) { a.categories = categories }
}

// WithCallbacks replaces the default logging observers.
func WithCallbacks(h einocb.Handler) Option {
	return func(a *Adapter) { a.handler = h }
}

// New compiles the oracle chain around cm.
func New(ctx context.Context, cm einomodel.BaseChatModel, cfg model.OracleModelConfig, opts ...Option) (*Adapter, error) {
	if cm == nil {
		return nil, errx.ErrOracleUnavailable
	}

	chain := compose.NewChain[string, *schema.Message]()
	chain.
		AppendLambda(compose.InvokableLambda(toMessages), compose.WithNodeName(NodeOracleInput)).
		AppendChatModel(cm, compose.WithNodeName(NodeOracleModel))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling oracle chain")
		return nil, fmt.Errorf("error compiling oracle chain: %w", err)
	}

	a := &Adapter{
		runnable: runnable,
		cfg:      cfg,
		pricing:  model.ResolvePricing(cfg.Model),
		handler:  observers.NewOracleCallbacks(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func toMessages(_ context.Context, prompt string) ([]*schema.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("empty oracle prompt")
	}
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}, nil
}

func (a *Adapter) maxAttempts() int {
	if a.cfg.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return a.cfg.MaxAttempts
}

func (a *Adapter) newBackOff() backoff.BackOff {
	base := a.cfg.RetryBaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         base << a.maxAttempts(),
	}
}

// Complete sends prompt to the model and returns the reply text.
// Rate-limit failures are retried with exponential backoff; other failures are returned at once.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	if a == nil || a.runnable == nil {
		return "", errx.WrapOracle(errx.ErrOracleUnavailable)
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := a.runnable.Invoke(ctx, prompt, compose.WithCallbacks(a.handler))
		if err != nil {
			if errx.IsRateLimited(err) {
				metrics.IncOracleAttempt("rate_limited")
				logx.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", a.maxAttempts()).Msg("oracle rate limited")
				return "", err
			}
			metrics.IncOracleAttempt("error")
			logx.Error().Err(err).Int("attempt", attempt).Msg("oracle call failed")
			return "", backoff.Permanent(err)
		}
		metrics.IncOracleAttempt("ok")
		a.recordUsage(out)
		if out == nil {
			return "", nil
		}
		return strings.TrimSpace(out.Content), nil
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(a.newBackOff()),
		backoff.WithMaxTries(uint(a.maxAttempts())),
	)
	if err != nil {
		return "", errx.WrapOracle(err)
	}
	return text, nil
}

// CompleteJSON decodes the first JSON value of the reply into out.
func (a *Adapter) CompleteJSON(ctx context.Context, prompt string, out any) (bool, error) {
	text, err := a.Complete(ctx, prompt)
	if err != nil {
		return false, err
	}
	if !DecodeJSON(text, out) {
		logx.Debug().Str("reply", text).Msg("oracle reply has no structured result")
		return false, nil
	}
	return true, nil
}

// ExtractField asks the model for one checkout field value.
func (a *Adapter) ExtractField(ctx context.Context, transcript string, ft model.FieldType) (model.FieldExtraction, error) {
	p, err := prompts.RenderFieldExtraction(ctx, transcript, ft)
	if err != nil {
		return model.FieldExtraction{Error: err.Error()}, err
	}

	var res struct {
		Extracted any `json:"extracted"`
		Error     any `json:"error"`
	}
	ok, err := a.CompleteJSON(ctx, p, &res)
	if err != nil {
		return model.FieldExtraction{Error: err.Error(), RateLimited: errx.IsRateLimited(err)}, err
	}
	if !ok {
		return model.FieldExtraction{Error: errx.ErrNoStructuredResult.Error()}, nil
	}
	return model.FieldExtraction{
		Value: Scalar(res.Extracted),
		Error: Scalar(res.Error),
	}, nil
}

// ClassifyIntent maps transcript to an intent label. Unparsable replies yield IntentGeneral.
func (a *Adapter) ClassifyIntent(ctx context.Context, transcript string, cc model.CommandContext) (model.Intent, error) {
	p, err := prompts.RenderIntent(ctx, transcript, cc, a.categories)
	if err != nil {
		return model.IntentGeneral, err
	}

	var res struct {
		Intent string `json:"intent"`
	}
	ok, err := a.CompleteJSON(ctx, p, &res)
	if err != nil {
		return model.IntentGeneral, err
	}
	if !ok {
		return model.IntentGeneral, nil
	}
	return model.ParseIntent(res.Intent), nil
}

func (a *Adapter) recordUsage(out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	cost := model.ComputeCost(out.ResponseMeta.Usage, a.pricing)
	metrics.AddOracleCost(cost.TotalUSD)
	logx.Debug().
		Str("model", a.cfg.Model).
		Int("prompt_tokens", cost.PromptTokens).
		Int("completion_tokens", cost.CompletionTokens).
		Float64("cost_usd", cost.TotalUSD).
		Msg("oracle usage")
}

var _ model.Oracle = (*Adapter)(nil)
