package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TranscriptsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_transcripts_dropped_total",
		Help: "Total number of transcript events rejected before dispatch, by reason",
	}, []string{"reason"})

	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_dispatch_total",
		Help: "Total number of dispatched utterances by intent and outcome",
	}, []string{"intent", "outcome"})

	ReconnectsScheduledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_reconnects_scheduled_total",
		Help: "Total number of voice session reconnects scheduled, by trigger",
	}, []string{"trigger"})

	OracleAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_oracle_attempts_total",
		Help: "Total number of language model attempts by result",
	}, []string{"result"})

	OracleCostUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vnovaa_oracle_cost_usd_total",
		Help: "Accumulated language model cost in USD",
	})

	CheckoutStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_checkout_steps_total",
		Help: "Total number of guided checkout answers by step and result",
	}, []string{"step", "result"})

	NotifyDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_notify_dropped_total",
		Help: "Total number of field-updated notifications dropped by reason",
	}, []string{"reason"})

	SpeakTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vnovaa_speak_total",
		Help: "Total number of speak requests by result",
	}, []string{"result"})
)

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// IncTranscriptDropped records a transcript rejected by the session gate or dispatcher.
func IncTranscriptDropped(reason string) {
	TranscriptsDroppedTotal.WithLabelValues(label(reason)).Inc()
}

// IncDispatch records a dispatch outcome.
func IncDispatch(intent, outcome string) {
	DispatchTotal.WithLabelValues(label(intent), label(outcome)).Inc()
}

// IncReconnect records a scheduled reconnect.
func IncReconnect(trigger string) {
	ReconnectsScheduledTotal.WithLabelValues(label(trigger)).Inc()
}

// IncOracleAttempt records one language model attempt.
func IncOracleAttempt(result string) {
	OracleAttemptsTotal.WithLabelValues(label(result)).Inc()
}

// AddOracleCost accumulates model spend.
func AddOracleCost(usd float64) {
	if usd > 0 {
		OracleCostUSD.Add(usd)
	}
}

// IncCheckoutStep records a checkout answer result.
func IncCheckoutStep(step, result string) {
	CheckoutStepsTotal.WithLabelValues(label(step), label(result)).Inc()
}

// IncSpeak records a speak request result.
func IncSpeak(result string) {
	SpeakTotal.WithLabelValues(label(result)).Inc()
}

// IncNotifyDropped records a notification a subscriber could not receive.
func IncNotifyDropped(reason string) {
	NotifyDroppedTotal.WithLabelValues(label(reason)).Inc()
}
