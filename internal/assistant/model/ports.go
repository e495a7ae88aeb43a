package model

import (
	"context"
	"fmt"
	"time"
)

// TransportEventKind names a speech transport lifecycle event.
type TransportEventKind string

const (
	EventSessionStarted TransportEventKind = "call-start"
	EventSessionEnded   TransportEventKind = "call-end"
	EventSpeechStarted  TransportEventKind = "speech-start"
	EventSpeechEnded    TransportEventKind = "speech-end"
	EventTranscript     TransportEventKind = "transcript"
	EventError          TransportEventKind = "error"
)

// TransportEvent is one event read from the speech transport.
type TransportEvent struct {
	Kind       TransportEventKind
	Transcript TranscriptEvent
	Err        *TransportError
	At         time.Time
}

// TransportError is the error payload reported by the speech transport.
type TransportError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Type, e.Status, e.Message)
	}
	if e.Type == "" {
		return e.Message
	}
	return e.Type + ": " + e.Message
}

// SystemUtterance asks the transport to speak on the assistant's behalf.
type SystemUtterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transport is the speech-to-text/text-to-speech session transport.
type Transport interface {
	Start(ctx context.Context, sessionID string) error
	Stop() error
	Send(ctx context.Context, u SystemUtterance) error
	Events() <-chan TransportEvent
}

// Oracle is the classification/extraction language model capability.
type Oracle interface {
	// Complete returns the raw model text for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteJSON decodes the first JSON value in the reply into out.
	// ok is false when the reply held no parsable JSON.
	CompleteJSON(ctx context.Context, prompt string, out any) (ok bool, err error)
	ExtractField(ctx context.Context, transcript string, ft FieldType) (FieldExtraction, error)
	ClassifyIntent(ctx context.Context, transcript string, cc CommandContext) (Intent, error)
}

// Speaker delivers assistant speech. It returns false when the utterance was not sent.
type Speaker interface {
	Speak(ctx context.Context, text string) bool
}

// UserInfoStore is the shared checkout form record.
type UserInfoStore interface {
	Get(ctx context.Context) (UserInfo, error)
	Update(ctx context.Context, partial map[string]string) error
}

// Notifier broadcasts checkout field updates to listening UI.
type Notifier interface {
	FieldUpdated(ctx context.Context, u FieldUpdate)
}

// OrderTrigger submits the order once guided checkout is confirmed.
type OrderTrigger func()

// ContextProvider exposes the storefront state read at dispatch time.
type ContextProvider interface {
	CommandContext() CommandContext
}

// Navigator changes the current storefront route.
type Navigator interface {
	Navigate(route string)
}

// Catalog is the read-only product catalog.
type Catalog interface {
	Products() []Product
	Categories() []string
	Product(id string) (Product, bool)
}

// Cart mutates the shopping cart.
type Cart interface {
	AddToCart(p Product, size string, quantity int)
}

// ProductSelection holds the size and quantity picked on the product page.
type ProductSelection interface {
	SelectSize(size string)
	SetQuantity(quantity int)
}

// Filters mutates the product listing filters.
type Filters interface {
	ApplyFilters(f FilterSet)
	RemoveFilters(keys []string)
	ClearFilters()
}
