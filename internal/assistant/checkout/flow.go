package checkout

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/semaphore"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

var (
	affirmatives = map[string]bool{"yes": true, "place": true, "confirm": true, "proceed": true, "okay": true, "sure": true}
	negatives    = map[string]bool{"no": true, "cancel": true}
)

// Result is the outcome of one answer.
type Result struct {
	Prompt             string
	Step               Step
	Advanced           bool
	Field              string
	Value              string
	ShouldConfirmOrder bool
	Cancelled          bool
}

// State is a read-only view of the dialogue with payment fields masked.
type State struct {
	Step      string            `json:"step"`
	Active    bool              `json:"active"`
	Collected map[string]string `json:"collected"`
}

// Flow is the guided checkout dialogue.
type Flow struct {
	mu        sync.RWMutex
	step      Step
	collected map[string]string

	// serializes ProcessAnswer; overlapping answers are dropped
	inflight *semaphore.Weighted

	extractors []Extractor
	store      model.UserInfoStore
	notifier   model.Notifier
}

// Option configures a Flow.
type Option func(*Flow)

func WithUserInfoStore(s model.UserInfoStore) Option {
	return func(f *Flow) { f.store = s }
}

func WithNotifier(n model.Notifier) Option {
	return func(f *Flow) { f.notifier = n }
}

// WithExtractors replaces the extraction chain. Extractors are tried in order.
func WithExtractors(ex ...Extractor) Option {
	return func(f *Flow) { f.extractors = ex }
}

// NewFlow builds a dialogue that extracts with oracle first and the rule extractor second.
func NewFlow(oracle model.Oracle, cfg model.CheckoutConfig, opts ...Option) *Flow {
	f := &Flow{
		step:      StepIdle,
		collected: map[string]string{},
		inflight:  semaphore.NewWeighted(1),
	}
	if oracle != nil {
		f.extractors = append(f.extractors, OracleExtractor{Oracle: oracle})
	}
	f.extractors = append(f.extractors, NewRuleExtractor(cfg.RuleFallbackFields...))
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StartFlow resets the dialogue to the name step and returns its prompt.
func (f *Flow) StartFlow() string {
	f.mu.Lock()
	f.step = StepName
	f.collected = map[string]string{}
	f.mu.Unlock()

	logx.Info().Str("step", StepName.String()).Msg("guided checkout started")
	return PromptName
}

// StopFlow returns to idle. Fields already written to the user-info store stay there.
func (f *Flow) StopFlow() {
	f.mu.Lock()
	prev := f.step
	f.step = StepIdle
	f.mu.Unlock()

	if prev != StepIdle {
		logx.Info().Str("from_step", prev.String()).Msg("guided checkout stopped")
	}
}

func (f *Flow) CurrentStep() Step {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.step
}

// Active reports whether answers should be routed to the dialogue.
// The terminal complete step is not active.
func (f *Flow) Active() bool {
	s := f.CurrentStep()
	return s != StepIdle && s != StepComplete
}

// Collected returns a copy of the captured fields.
func (f *Flow) Collected() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.collected)
}

// State returns a masked snapshot for observers.
func (f *Flow) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := maps.Clone(f.collected)
	if v, ok := c[model.KeyCardNumber]; ok && len(v) > 4 {
		c[model.KeyCardNumber] = "**** " + v[len(v)-4:]
	}
	if _, ok := c[model.KeyCVV]; ok {
		c[model.KeyCVV] = "***"
	}
	return State{Step: f.step.String(), Active: f.step != StepIdle && f.step != StepComplete, Collected: c}
}

// ProcessAnswer feeds one utterance to the current step.
// It returns nil when another answer is still resolving.
func (f *Flow) ProcessAnswer(ctx context.Context, transcript string) *Result {
	if !f.inflight.TryAcquire(1) {
		metrics.IncCheckoutStep(f.CurrentStep().String(), "dropped")
		logx.Debug().Str("transcript", transcript).Msg("checkout answer dropped while previous answer resolves")
		return nil
	}
	defer f.inflight.Release(1)

	step := f.CurrentStep()
	switch {
	case step == StepConfirm:
		return f.confirm(transcript)
	case step.collects():
		return f.capture(ctx, step, transcript)
	default:
		return &Result{Step: step}
	}
}

func (f *Flow) capture(ctx context.Context, step Step, transcript string) *Result {
	spec := transitions[step]

	ext := f.extract(ctx, transcript, spec.fieldType)
	if !ext.OK() {
		metrics.IncCheckoutStep(spec.name, "unclear")
		logx.Debug().Str("step", spec.name).Str("reason", ext.Error).Bool("rate_limited", ext.RateLimited).Msg("checkout extraction failed")
		if ext.RateLimited {
			return &Result{Step: step, Prompt: fmt.Sprintf(repromptRateLimited, spec.label)}
		}
		return &Result{Step: step, Prompt: fmt.Sprintf(repromptUnclear, spec.label)}
	}

	value, reprompt, ok := spec.normalize(ext.Value)
	if !ok {
		metrics.IncCheckoutStep(spec.name, "rejected")
		logx.Debug().Str("step", spec.name).Msg("checkout value failed validation")
		if reprompt == "" {
			reprompt = fmt.Sprintf(repromptUnclear, spec.label)
		}
		return &Result{Step: step, Prompt: reprompt}
	}

	f.mu.Lock()
	if f.step != step {
		current := f.step
		f.mu.Unlock()
		logx.Debug().Str("step", spec.name).Str("current_step", current.String()).Msg("checkout step changed during extraction, discarding value")
		return &Result{Step: current}
	}
	f.collected[spec.field] = value
	f.step = spec.next
	f.mu.Unlock()

	metrics.IncCheckoutStep(spec.name, "captured")
	f.publish(ctx, step, spec, value)

	return &Result{
		Prompt:   spec.next.Prompt(),
		Step:     spec.next,
		Advanced: true,
		Field:    spec.field,
		Value:    value,
	}
}

// extract tries each extractor in order and keeps the first value.
func (f *Flow) extract(ctx context.Context, transcript string, ft model.FieldType) model.FieldExtraction {
	var failed model.FieldExtraction
	for _, ex := range f.extractors {
		res, err := ex.Extract(ctx, transcript, ft)
		if err == nil && res.OK() {
			return res
		}
		if err != nil {
			logx.Warn().Err(err).Str("field_type", string(ft)).Msg("field extractor failed")
		}
		failed.RateLimited = failed.RateLimited || res.RateLimited
		if failed.Error == "" {
			failed.Error = res.Error
		}
	}
	return failed
}

func (f *Flow) publish(ctx context.Context, step Step, spec stepSpec, value string) {
	if f.store != nil {
		if err := f.store.Update(ctx, map[string]string{spec.field: value}); err != nil {
			logx.Warn().Err(err).Str("field", spec.field).Msg("failed to write checkout field to user info store")
		}
	}
	if f.notifier != nil {
		f.notifier.FieldUpdated(ctx, model.FieldUpdate{
			Step:          step.String(),
			Message:       fmt.Sprintf("Got your %s", spec.label),
			UpdatedFields: []string{spec.field},
		})
	}
}

func (f *Flow) confirm(transcript string) *Result {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	switch {
	case containsAny(words, affirmatives):
		f.mu.Lock()
		if f.step != StepConfirm {
			current := f.step
			f.mu.Unlock()
			return &Result{Step: current}
		}
		f.step = StepComplete
		f.mu.Unlock()
		metrics.IncCheckoutStep(StepConfirm.String(), "confirmed")
		logx.Info().Msg("guided checkout confirmed")
		return &Result{Prompt: PromptComplete, Step: StepComplete, Advanced: true, ShouldConfirmOrder: true}
	case containsAny(words, negatives):
		f.StopFlow()
		metrics.IncCheckoutStep(StepConfirm.String(), "cancelled")
		return &Result{Prompt: ReplyCancelled, Step: StepIdle, Cancelled: true}
	default:
		return &Result{Prompt: ReplyConfirmAgain, Step: StepConfirm}
	}
}

func containsAny(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}
