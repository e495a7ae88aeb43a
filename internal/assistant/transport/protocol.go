package transport

import (
	"strings"

	"github.com/arckit11/v-novaa/internal/assistant/model"
)

// outbound is a client to server frame: start, stop or add-message.
type outbound struct {
	Type        string                 `json:"type"`
	SessionID   string                 `json:"sessionId,omitempty"`
	AssistantID string                 `json:"assistantId,omitempty"`
	Message     *model.SystemUtterance `json:"message,omitempty"`
}

// inbound is a server to client frame.
type inbound struct {
	Type           string `json:"type"`
	Role           string `json:"role"`
	Transcript     string `json:"transcript"`
	TranscriptType string `json:"transcriptType"`
	Error          *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Status  int    `json:"status"`
	} `json:"error"`
	Message string `json:"message"`
}

func (m inbound) event() (model.TransportEvent, bool) {
	switch model.TransportEventKind(m.Type) {
	case model.EventSessionStarted, model.EventSessionEnded, model.EventSpeechStarted, model.EventSpeechEnded:
		return model.TransportEvent{Kind: model.TransportEventKind(m.Type)}, true
	case model.EventTranscript:
		return model.TransportEvent{
			Kind: model.EventTranscript,
			Transcript: model.TranscriptEvent{
				Role:    model.Role(strings.ToLower(m.Role)),
				Text:    m.Transcript,
				IsFinal: strings.EqualFold(m.TranscriptType, "final"),
			},
		}, true
	case model.EventError:
		te := &model.TransportError{Message: m.Message}
		if m.Error != nil {
			te.Type = m.Error.Type
			te.Status = m.Error.Status
			te.Message = m.Error.Message
			if te.Message == "" {
				te.Message = m.Error.Msg
			}
		}
		if te.Message == "" {
			te.Message = "unknown error"
		}
		return model.TransportEvent{Kind: model.EventError, Err: te}, true
	}
	return model.TransportEvent{}, false
}
