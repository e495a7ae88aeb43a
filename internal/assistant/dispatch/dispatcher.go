package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/arckit11/v-novaa/internal/assistant/checkout"
	"github.com/arckit11/v-novaa/internal/assistant/handlers"
	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	"github.com/arckit11/v-novaa/internal/metrics"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

// Outcome is the result of one Dispatch call.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeDropped    Outcome = "dropped"
	OutcomeCheckout   Outcome = "checkout"
	OutcomeHandled    Outcome = "handled"
	OutcomeNotHandled Outcome = "not_handled"
	OutcomeFailed     Outcome = "failed"
)

const (
	replyUnclear     = "Sorry, I couldn't understand that. Please repeat."
	replyRateLimited = "I'm a little busy right now. Please say that again in a moment."
)

var orderFastPath = []string{"checkout", "place order", "complete purchase", "buy now"}

// Dispatcher routes one utterance at a time to the checkout dialogue or an intent handler.
type Dispatcher struct {
	cfg      model.DispatchConfig
	oracle   model.Oracle
	flow     *checkout.Flow
	handlers handlers.Set
	context  model.ContextProvider
	speaker  model.Speaker
	order    model.OrderTrigger
	log      *ActionLog

	// single-flight; overlapping utterances are dropped
	inflight *semaphore.Weighted

	mu            sync.Mutex
	sessionActive func() bool
	paymentVisit  bool
	autoStart     *time.Timer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithSpeaker(s model.Speaker) Option {
	return func(d *Dispatcher) { d.speaker = s }
}

func WithOrderTrigger(t model.OrderTrigger) Option {
	return func(d *Dispatcher) { d.order = t }
}

func WithActionLog(l *ActionLog) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithSessionActive reports whether the voice session is live; checkout only auto-starts while it is.
func WithSessionActive(fn func() bool) Option {
	return func(d *Dispatcher) { d.sessionActive = fn }
}

func New(
	cfg model.DispatchConfig,
	oracle model.Oracle,
	flow *checkout.Flow,
	set handlers.Set,
	cp model.ContextProvider,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		oracle:   oracle,
		flow:     flow,
		handlers: set,
		context:  cp,
		inflight: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = NewActionLog(cfg.ActionLogSize, nil)
	}
	if d.handlers == nil {
		d.handlers = handlers.Set{}
	}
	return d
}

// ActionLog returns the dispatcher's outcome log.
func (d *Dispatcher) ActionLog() *ActionLog {
	return d.log
}

// HandleTranscript satisfies the session transcript callback.
func (d *Dispatcher) HandleTranscript(ctx context.Context, transcript string) {
	d.Dispatch(ctx, transcript)
}

// Dispatch routes one final user utterance. Concurrent calls are dropped, never queued.
func (d *Dispatcher) Dispatch(ctx context.Context, transcript string) (out Outcome) {
	text := strings.TrimSpace(transcript)
	intent := ""
	defer func() { metrics.IncDispatch(intent, string(out)) }()

	// short answers such as "yes" still reach an active checkout
	if text == "" || (len(text) < d.cfg.MinTranscriptChars && !d.checkoutActive()) {
		metrics.IncTranscriptDropped("too_short")
		logx.Debug().Str("transcript", text).Msg("Transcript too short, ignoring")
		return OutcomeIgnored
	}
	if !d.inflight.TryAcquire(1) {
		metrics.IncTranscriptDropped("busy")
		logx.Debug().Str("transcript", text).Msg("Dispatch in flight, dropping transcript")
		return OutcomeDropped
	}
	defer d.inflight.Release(1)

	if d.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.HandlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Interface("panic", r).
				Str("transcript", text).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from handler panic")
			d.log.Record(ctx, "Error processing command", false)
			out = OutcomeFailed
		}
	}()

	if d.checkoutActive() {
		intent = "checkout"
		return d.answerCheckout(ctx, text)
	}

	d.log.Record(ctx, fmt.Sprintf("Processing: %q", text), true)

	cc := d.commandContext()
	in, classifyErr := d.classify(ctx, text, cc)
	intent = string(in)

	if d.checkoutActive() {
		logx.Debug().Str("intent", intent).Msg("Checkout became active during classification")
		intent = "checkout"
		return d.answerCheckout(ctx, text)
	}
	d.log.Record(ctx, "Intent: "+intent, true)

	handled, err := d.route(ctx, in, text, cc)
	switch {
	case err != nil:
		logx.Error().Err(err).Str("intent", intent).Str("transcript", text).Msg("Error processing voice command")
		d.log.Record(ctx, "Error processing command", false)
		if errx.IsRateLimited(err) {
			d.speak(ctx, replyRateLimited)
		} else {
			d.speak(ctx, replyUnclear)
		}
		return OutcomeFailed
	case !handled && classifyErr != nil:
		d.log.Record(ctx, "Command not understood", false)
		if errx.IsRateLimited(classifyErr) {
			d.speak(ctx, replyRateLimited)
		} else {
			d.speak(ctx, replyUnclear)
		}
		return OutcomeNotHandled
	case !handled:
		d.log.Record(ctx, "Command not recognized", false)
		return OutcomeNotHandled
	}
	return OutcomeHandled
}

// classify picks the intent for text. On an oracle failure it returns the
// general bucket together with the error so the caller can still try the
// keyword fallbacks.
func (d *Dispatcher) classify(ctx context.Context, text string, cc model.CommandContext) (model.Intent, error) {
	lower := strings.ToLower(text)
	for _, kw := range orderFastPath {
		if strings.Contains(lower, kw) {
			return model.IntentOrderCompletion, nil
		}
	}
	if d.oracle == nil {
		return model.IntentGeneral, nil
	}
	in, err := d.oracle.ClassifyIntent(ctx, text, cc)
	if err != nil {
		logx.Warn().Err(err).Str("transcript", text).Msg("Intent classification failed")
		return model.IntentGeneral, err
	}
	return in, nil
}

// route runs the intent's handler; the general bucket falls back to navigation then cart.
func (d *Dispatcher) route(ctx context.Context, in model.Intent, text string, cc model.CommandContext) (bool, error) {
	if h, ok := d.handlers[in]; ok && in != model.IntentGeneral {
		return h.Handle(ctx, text, cc)
	}
	for _, fb := range []model.Intent{model.IntentNavigation, model.IntentCart} {
		h, ok := d.handlers[fb]
		if !ok {
			continue
		}
		handled, err := h.Handle(ctx, text, cc)
		if err != nil || handled {
			return handled, err
		}
	}
	return false, nil
}

func (d *Dispatcher) answerCheckout(ctx context.Context, text string) Outcome {
	res := d.flow.ProcessAnswer(ctx, text)
	if res == nil {
		metrics.IncTranscriptDropped("checkout_busy")
		return OutcomeDropped
	}
	d.speak(ctx, res.Prompt)
	if res.ShouldConfirmOrder {
		d.log.Record(ctx, "Submitting order", true)
		if d.order != nil {
			d.order()
		}
	}
	return OutcomeCheckout
}

// StartCheckout begins the guided checkout and speaks its first prompt.
func (d *Dispatcher) StartCheckout(ctx context.Context) string {
	if d.flow == nil {
		return ""
	}
	prompt := d.flow.StartFlow()
	d.log.Record(ctx, "Guided checkout started", true)
	d.speak(ctx, prompt)
	return prompt
}

// RouteChanged starts the guided checkout shortly after the shopper lands on the
// payment page with a live session, once per visit.
func (d *Dispatcher) RouteChanged(ctx context.Context, route string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !model.IsPaymentRoute(route) {
		d.paymentVisit = false
		d.stopAutoStartLocked()
		return
	}
	if d.paymentVisit || d.flow == nil {
		return
	}
	if d.sessionActive != nil && !d.sessionActive() {
		return
	}
	d.paymentVisit = true

	ctx = context.WithoutCancel(ctx)
	d.autoStart = time.AfterFunc(d.cfg.AutoStartDelay, func() {
		if d.flow.Active() {
			return
		}
		logx.Info().Msg("On payment page, starting guided checkout")
		d.StartCheckout(ctx)
	})
}

// Close cancels a pending checkout auto-start.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopAutoStartLocked()
}

func (d *Dispatcher) stopAutoStartLocked() {
	if d.autoStart != nil {
		d.autoStart.Stop()
		d.autoStart = nil
	}
}

func (d *Dispatcher) checkoutActive() bool {
	return d.flow != nil && d.flow.Active()
}

func (d *Dispatcher) commandContext() model.CommandContext {
	if d.context == nil {
		return model.CommandContext{}
	}
	return d.context.CommandContext()
}

func (d *Dispatcher) speak(ctx context.Context, text string) {
	if d.speaker == nil || text == "" {
		return
	}
	d.speaker.Speak(ctx, text)
}
