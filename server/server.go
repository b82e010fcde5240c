// Package server exposes the editor over HTTP: a JSON API, a WebSocket
// endpoint for interactive clients, health and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/metrics"
	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/editor"
)

type Config struct {
	Addr            string
	AllowedOrigins  []string // empty accepts any origin
	ShutdownTimeout time.Duration
	StoreBackend    string
}

type WSServer struct {
	config  Config
	service *editor.Service
	locks   *editor.SessionLocks
	log     *logger.Logger
	metrics *metrics.Metrics
}

type Option func(*WSServer)

func WithLogger(l *logger.Logger) Option {
	return func(s *WSServer) { s.log = l.Component("server") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WSServer) { s.metrics = m }
}

// WithSessionLocks shares the per-session locks with other front ends
// driving the same service.
func WithSessionLocks(l *editor.SessionLocks) Option {
	return func(s *WSServer) { s.locks = l }
}

func NewWSServer(config Config, service *editor.Service, opts ...Option) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &WSServer{
		config:  config,
		service: service,
		locks:   editor.NewSessionLocks(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("POST /api/sessions/{id}/document", s.handleInitialize)
	mux.HandleFunc("POST /api/sessions/{id}/contextual", s.handleContextualEdit)
	mux.HandleFunc("POST /api/sessions/{id}/global", s.handleGlobalEdit)
	mux.HandleFunc("POST /api/sessions/{id}/commands", s.handleCommand)
	mux.HandleFunc("POST /api/sessions/{id}/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/sessions/{id}/import", s.handleImport)
	mux.HandleFunc("GET /api/sessions/{id}/text", s.handleFullText)
	mux.HandleFunc("GET /api/sessions/{id}/paragraphs", s.handleParagraphs)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *WSServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.LogServerStart(s.config.Addr, s.config.StoreBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.log.LogServerShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

type documentBody struct {
	Text string `json:"text"`
}

type contextualBody struct {
	SelectedText string `json:"selectedText"`
	Instruction  string `json:"instruction"`
}

type instructionBody struct {
	Instruction string `json:"instruction"`
}

type commandBody struct {
	Command string `json:"command"`
}

type importBody struct {
	URL string `json:"url"`
}

func (s *WSServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.service.Registry().Sessions(),
	})
}

func (s *WSServer) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var body documentBody
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.InitializeDocument(r.Context(), id, body.Text)
	})
}

func (s *WSServer) handleContextualEdit(w http.ResponseWriter, r *http.Request) {
	var body contextualBody
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.ApplyContextualEdit(r.Context(), id, body.SelectedText, body.Instruction)
	})
}

func (s *WSServer) handleGlobalEdit(w http.ResponseWriter, r *http.Request) {
	var body instructionBody
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.ApplyGlobalEdit(r.Context(), id, body.Instruction)
	})
}

func (s *WSServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.ExecuteCommand(r.Context(), id, body.Command)
	})
}

func (s *WSServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body models.DraftRequest
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.GenerateDocument(r.Context(), id, body)
	})
}

func (s *WSServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var body importBody
	if !s.decode(w, r, &body) {
		return
	}
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.ImportDocument(r.Context(), id, body.URL)
	})
}

func (s *WSServer) handleFullText(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.GetFullText(r.Context(), id)
	})
}

func (s *WSServer) handleParagraphs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.GetParagraphs(r.Context(), id)
	})
}

func (s *WSServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.respond(w, id, func() editor.Result {
		return s.service.GetHistory(r.Context(), id)
	})
}

func (s *WSServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, editor.Result{
			SessionID: r.PathValue("id"),
			Message:   "El cuerpo de la solicitud no es JSON válido",
			Error:     editor.CodeParse,
		})
		return false
	}
	return true
}

func (s *WSServer) respond(w http.ResponseWriter, sessionID string, fn func() editor.Result) {
	unlock := s.locks.Lock(sessionID)
	result := fn()
	unlock()

	writeJSON(w, statusFor(result), result)
}

func statusFor(result editor.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Error {
	case editor.CodeNotFound:
		return http.StatusNotFound
	case editor.CodeNotMatched:
		return http.StatusUnprocessableEntity
	case editor.CodeParse:
		return http.StatusBadRequest
	case editor.CodeTimeout:
		return http.StatusGatewayTimeout
	case editor.CodeGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
