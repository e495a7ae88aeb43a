package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arckit11/v-novaa/internal/assistant/checkout"
	"github.com/arckit11/v-novaa/internal/assistant/dispatch"
	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/session"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

const maxBodyBytes = 1 << 16

// Session is the voice session surface the operator API drives.
type Session interface {
	Start(ctx context.Context, sessionID string) error
	Stop() error
	Snapshot() session.Snapshot
}

// Dispatcher runs typed commands through the same path as spoken ones.
type Dispatcher interface {
	Dispatch(ctx context.Context, transcript string) dispatch.Outcome
	StartCheckout(ctx context.Context) string
}

// ActionLog lists recent dispatch outcomes, newest first.
type ActionLog interface {
	Entries() []model.ActionLogEntry
}

// Checkout exposes the guided checkout dialogue state.
type Checkout interface {
	State() checkout.State
}

// FieldUpdates is an in-process source of checkout field notifications.
type FieldUpdates interface {
	Subscribe(buffer int) (<-chan model.FieldUpdate, func())
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithFieldUpdates streams checkout field updates at GET /v1/checkout/updates.
func WithFieldUpdates(u FieldUpdates) ServerOption {
	return func(s *Server) { s.updates = u }
}

type Server struct {
	cfg        model.HTTPConfig
	session    Session
	dispatcher Dispatcher
	actions    ActionLog
	checkout   Checkout
	updates    FieldUpdates
	validate   *validator.Validate
	newID      func() string
}

func NewServer(cfg model.HTTPConfig, s Session, d Dispatcher, a ActionLog, c Checkout, opts ...ServerOption) *Server {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 120
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	srv := &Server{
		cfg:        cfg,
		session:    s,
		dispatcher: d,
		actions:    a,
		checkout:   c,
		validate:   validator.New(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit())

		r.Get("/session", s.getSession)
		r.Post("/session/start", s.startSession)
		r.Post("/session/stop", s.stopSession)
		r.Post("/commands", s.postCommand)
		r.Get("/actions", s.getActions)
		r.Get("/checkout", s.getCheckout)
		r.Post("/checkout/start", s.startCheckout)
		if s.updates != nil {
			r.Get("/checkout/updates", s.streamUpdates)
		}
	})
	return r
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	window := s.cfg.RateWindow
	return httprate.Limit(
		s.cfg.RequestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limit_exceeded", Detail: "Too many requests. Please try again later."})
		}),
	)
}

type startRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128,printascii"`
}

type commandRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

type commandResponse struct {
	Outcome dispatch.Outcome      `json:"outcome"`
	Last    *model.ActionLogEntry `json:"lastAction,omitempty"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = s.newID()
	}
	if err := s.session.Start(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) stopSession(w http.ResponseWriter, _ *http.Request) {
	if err := s.session.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	out := s.dispatcher.Dispatch(r.Context(), req.Text)
	resp := commandResponse{Outcome: out}
	if entries := s.actions.Entries(); len(entries) > 0 {
		resp.Last = &entries[0]
	}
	status := http.StatusOK
	if out == dispatch.OutcomeDropped {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (s *Server) getActions(w http.ResponseWriter, _ *http.Request) {
	entries := s.actions.Entries()
	if entries == nil {
		entries = []model.ActionLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getCheckout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.checkout.State())
}

func (s *Server) startCheckout(w http.ResponseWriter, r *http.Request) {
	prompt := s.dispatcher.StartCheckout(r.Context())
	if prompt == "" {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "checkout_unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

// streamUpdates relays field updates as server-sent events until the client leaves.
func (s *Server) streamUpdates(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming_unsupported"})
		return
	}
	updates, cancel := s.updates.Subscribe(16)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b, err := json.Marshal(u)
			if err != nil {
				logx.Warn().Err(err).Msg("failed to marshal field update")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: field-updated\ndata: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// decode reads a JSON body into v and validates it. Empty bodies are accepted when optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Detail: err.Error()})
			return false
		}
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation_failed", Detail: err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err, http.StatusInternalServerError)
	msg := errx.SystemErrorMessage
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}
	if errors.Is(err, session.ErrClosed) {
		status, msg = http.StatusServiceUnavailable, err.Error()
	}
	logx.Error().Err(err).Int("status", status).Msg("operator request failed")
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
