package model

import "time"

// ================ Config ================

// SessionConfig tunes the voice session lifecycle, echo guard and speak throttle.
type SessionConfig struct {
	MinTranscriptChars int `envconfig:"SESSION_MIN_TRANSCRIPT_CHARS" default:"3"`

	StartRetryDelay        time.Duration `envconfig:"SESSION_START_RETRY_DELAY" default:"1500ms"`
	EndedReconnectDelay    time.Duration `envconfig:"SESSION_ENDED_RECONNECT_DELAY" default:"1s"`
	EjectionReconnectDelay time.Duration `envconfig:"SESSION_EJECTION_RECONNECT_DELAY" default:"1500ms"`
	ErrorReconnectDelay    time.Duration `envconfig:"SESSION_ERROR_RECONNECT_DELAY" default:"3s"`
	MaxReconnectDelay      time.Duration `envconfig:"SESSION_MAX_RECONNECT_DELAY" default:"10s"`
	LongReconnectDelay     time.Duration `envconfig:"SESSION_LONG_RECONNECT_DELAY" default:"15s"`

	EchoGuardPadding time.Duration `envconfig:"SESSION_ECHO_GUARD_PADDING" default:"2s"`
	EchoGuardMin     time.Duration `envconfig:"SESSION_ECHO_GUARD_MIN" default:"3s"`
	EchoGuardMax     time.Duration `envconfig:"SESSION_ECHO_GUARD_MAX" default:"8s"`

	SpeakThrottle     time.Duration `envconfig:"SESSION_SPEAK_THROTTLE" default:"500ms"`
	SpeakPerWord      time.Duration `envconfig:"SESSION_SPEAK_PER_WORD" default:"150ms"`
	SpeakMinDuration  time.Duration `envconfig:"SESSION_SPEAK_MIN_DURATION" default:"2s"`
	SpeakGuardPadding time.Duration `envconfig:"SESSION_SPEAK_GUARD_PADDING" default:"3s"`
}

// DispatchConfig tunes the command dispatcher.
type DispatchConfig struct {
	MinTranscriptChars int           `envconfig:"DISPATCH_MIN_TRANSCRIPT_CHARS" default:"5"`
	ActionLogSize      int           `envconfig:"DISPATCH_ACTION_LOG_SIZE" default:"20"`
	AutoStartDelay     time.Duration `envconfig:"CHECKOUT_AUTOSTART_DELAY" default:"1500ms"`
	HandlerTimeout     time.Duration `envconfig:"DISPATCH_HANDLER_TIMEOUT" default:"20s"`
}

// CheckoutConfig tunes the guided checkout dialogue.
type CheckoutConfig struct {
	// RuleFallbackFields lists the fields the deterministic extractor may answer.
	RuleFallbackFields []string `envconfig:"CHECKOUT_RULE_FALLBACK_FIELDS" default:"name"`
}

// OracleModelConfig configures the classification/extraction chat model.
type OracleModelConfig struct {
	Model          string        `envconfig:"ORACLE_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens      int           `envconfig:"ORACLE_MAX_TOKENS" default:"512"`
	Temperature    float32       `envconfig:"ORACLE_TEMPERATURE" default:"0.1"`
	ThinkingBudget int           `envconfig:"ORACLE_THINKING_BUDGET" default:"0"`
	MaxAttempts    int           `envconfig:"ORACLE_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"ORACLE_RETRY_BASE_DELAY" default:"1s"`
	Timeout        time.Duration `envconfig:"ORACLE_TIMEOUT" default:"15s"`
}

// StoreConfig configures the Redis backed stores.
type StoreConfig struct {
	UserInfoTTL  time.Duration `envconfig:"STORE_USER_INFO_TTL" default:"24h"`
	ActionLogTTL time.Duration `envconfig:"STORE_ACTION_LOG_TTL" default:"6h"`
	// Channel receives field-updated notifications as JSON.
	Channel string `envconfig:"STORE_NOTIFY_CHANNEL" default:"checkout:field-updated"`
}

// TransportConfig configures the websocket speech transport.
type TransportConfig struct {
	URL          string        `envconfig:"TRANSPORT_URL" default:"ws://localhost:8787/voice"`
	APIKey       string        `envconfig:"TRANSPORT_API_KEY"`
	AssistantID  string        `envconfig:"TRANSPORT_ASSISTANT_ID"`
	DialTimeout  time.Duration `envconfig:"TRANSPORT_DIAL_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"TRANSPORT_WRITE_TIMEOUT" default:"5s"`
}

// HTTPConfig configures the operator HTTP surface.
type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	RequestLimit    int           `envconfig:"HTTP_REQUEST_LIMIT" default:"120"`
	RateWindow      time.Duration `envconfig:"HTTP_RATE_WINDOW" default:"1m"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}
