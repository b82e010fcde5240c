// Package editor is the caller-facing API of the editing engine. Every entry
// point returns a Result; expected failures never surface as Go errors.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/metrics"
	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/internal/types"
	"github.com/xhad/escrito/pkg/command"
	"github.com/xhad/escrito/pkg/document"
)

// Result is the answer to every editor call.
type Result struct {
	SessionID         string               `json:"sessionId"`
	Success           bool                 `json:"success"`
	Message           string               `json:"message"`
	Error             string               `json:"error,omitempty"`
	Warning           string               `json:"warning,omitempty"`
	Tier              string               `json:"tier,omitempty"`
	UpdatedParagraphs []models.Paragraph   `json:"updatedParagraphs,omitempty"`
	Paragraphs        []models.Paragraph   `json:"paragraphs,omitempty"`
	Text              string               `json:"text,omitempty"`
	History           []models.EditCommand `json:"history,omitempty"`
}

// Error codes carried in Result.Error.
const (
	CodeNotFound   = "not_found"
	CodeNotMatched = "not_matched"
	CodeParse      = "parse_error"
	CodeTimeout    = "generation_timeout"
	CodeGeneration = "generation_failure"
	CodePersist    = "persistence_failure"
	CodeInternal   = "internal"
)

const persistWarning = "Los cambios se aplicaron pero no se pudieron guardar; se reintentará en la próxima edición"

type Service struct {
	registry *Registry
	store    types.DocumentStore
	history  types.HistoryStore
	resolver document.Resolver
	drafter  types.Drafter
	importer types.Importer
	docOpts  []document.Option
	log      *logger.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithDrafter(d types.Drafter) Option {
	return func(s *Service) { s.drafter = d }
}

func WithImporter(i types.Importer) Option {
	return func(s *Service) { s.importer = i }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.Component("editor") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRegistry(r *Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithDocumentOptions forwards options to every document the service
// creates or restores.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(s *Service) { s.docOpts = append(s.docOpts, opts...) }
}

// New builds a service over store. When store also implements
// types.HistoryStore the audit trail is persisted with the text.
func New(store types.DocumentStore, r document.Resolver, opts ...Option) *Service {
	s := &Service{
		registry: NewRegistry(),
		store:    store,
		resolver: r,
		log:      logger.Nop(),
	}
	if h, ok := store.(types.HistoryStore); ok {
		s.history = h
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// InitializeDocument segments text into a new document for the session,
// replacing whatever text the session held. The session's audit trail
// carries over.
func (s *Service) InitializeDocument(ctx context.Context, sessionID, text string) Result {
	const op = "initialize"
	if strings.TrimSpace(sessionID) == "" {
		return s.failure(op, sessionID, models.ParseErrorf("falta el identificador de sesión"))
	}

	doc := document.Restore(sessionID, text, s.previousHistory(ctx, sessionID), s.resolver, s.docOpts...)
	s.registry.Put(doc)
	s.metrics.SetSessions(s.registry.Len())

	warning := s.persist(ctx, sessionID, doc, nil)
	s.metrics.RecordEdit(op, "applied")
	s.log.Session(sessionID).Info().Int("paragraphs", doc.Len()).Msg("document initialized")

	return Result{
		SessionID:  sessionID,
		Success:    true,
		Message:    fmt.Sprintf("Documento inicializado con %d párrafos", doc.Len()),
		Warning:    warning,
		Paragraphs: doc.Paragraphs(),
	}
}

func (s *Service) ApplyContextualEdit(ctx context.Context, sessionID, selected, instruction string) Result {
	return s.mutate(ctx, "contextual", sessionID, func(doc *document.Document) (document.Outcome, error) {
		return doc.ApplyContextualEdit(ctx, selected, instruction)
	})
}

func (s *Service) ApplyGlobalEdit(ctx context.Context, sessionID, instruction string) Result {
	return s.mutate(ctx, "global", sessionID, func(doc *document.Document) (document.Outcome, error) {
		return doc.ApplyGlobalEdit(ctx, instruction)
	})
}

// ExecuteCommand parses and runs a structured command such as
// "Eliminar el párrafo 2".
func (s *Service) ExecuteCommand(ctx context.Context, sessionID, input string) Result {
	cmd, err := command.Parse(input)
	if err != nil {
		return s.failure("command", sessionID, err)
	}
	return s.mutate(ctx, "command", sessionID, func(doc *document.Document) (document.Outcome, error) {
		return doc.Execute(cmd)
	})
}

func (s *Service) GetFullText(ctx context.Context, sessionID string) Result {
	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return s.failure("read", sessionID, err)
	}
	return Result{SessionID: sessionID, Success: true, Message: "Texto completo del documento", Text: doc.FullText()}
}

func (s *Service) GetHistory(ctx context.Context, sessionID string) Result {
	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return s.failure("read", sessionID, err)
	}
	history := doc.History()
	return Result{
		SessionID: sessionID,
		Success:   true,
		Message:   fmt.Sprintf("%d cambios registrados", len(history)),
		History:   history,
	}
}

func (s *Service) GetParagraphs(ctx context.Context, sessionID string) Result {
	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return s.failure("read", sessionID, err)
	}
	return Result{
		SessionID:  sessionID,
		Success:    true,
		Message:    fmt.Sprintf("%d párrafos", doc.Len()),
		Paragraphs: doc.Paragraphs(),
	}
}

// GenerateDocument drafts a new document through the configured drafter and
// initializes the session with it.
func (s *Service) GenerateDocument(ctx context.Context, sessionID string, req models.DraftRequest) Result {
	const op = "generate"
	if s.drafter == nil {
		return s.failure(op, sessionID, models.NewEditError(models.ErrGenerationFailure, "no hay un servicio de redacción configurado", nil))
	}

	text, err := s.drafter.Draft(ctx, req)
	if err != nil {
		return s.failure(op, sessionID, err)
	}
	return s.InitializeDocument(ctx, sessionID, text)
}

// ImportDocument fetches a published draft and initializes the session
// with its text.
func (s *Service) ImportDocument(ctx context.Context, sessionID, url string) Result {
	const op = "import"
	if s.importer == nil {
		return s.failure(op, sessionID, models.NewEditError(models.ErrGenerationFailure, "la importación de documentos no está habilitada", nil))
	}

	src, err := s.importer.Import(ctx, url)
	if err != nil {
		return s.failure(op, sessionID, err)
	}
	res := s.InitializeDocument(ctx, sessionID, src.Content)
	if res.Success && src.Title != "" {
		res.Message = fmt.Sprintf("%s (importado de %q)", res.Message, src.Title)
	}
	return res
}

func (s *Service) mutate(ctx context.Context, op, sessionID string, apply func(*document.Document) (document.Outcome, error)) Result {
	doc, err := s.document(ctx, sessionID)
	if err != nil {
		return s.failure(op, sessionID, err)
	}

	out, err := apply(doc)
	if err != nil {
		return s.failure(op, sessionID, err)
	}

	if !out.Changed {
		s.metrics.RecordEdit(op, "noop")
		return Result{
			SessionID: sessionID,
			Success:   true,
			Message:   "La instrucción no produjo cambios en el documento",
			Tier:      string(out.Tier),
		}
	}

	warning := s.persist(ctx, sessionID, doc, out.Appended)
	s.metrics.RecordEdit(op, "applied")

	return Result{
		SessionID:         sessionID,
		Success:           true,
		Message:           fmt.Sprintf("Cambios aplicados: %d registros nuevos en el historial", len(out.Appended)),
		Warning:           warning,
		Tier:              string(out.Tier),
		UpdatedParagraphs: out.Updated,
	}
}

// document returns the live document for the session, rebuilding it from
// the store when the process has not seen the session yet.
func (s *Service) document(ctx context.Context, sessionID string) (*document.Document, error) {
	if doc, ok := s.registry.Get(sessionID); ok {
		return doc, nil
	}

	text, err := s.store.LoadDocumentText(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFoundf("no existe un documento para la sesión %s", sessionID)
		}
		return nil, models.NewEditError(models.ErrPersistence, "no se pudo recuperar el documento guardado", err)
	}

	var history []models.EditCommand
	if s.history != nil {
		history, err = s.history.LoadHistory(ctx, sessionID)
		if err != nil {
			s.log.Session(sessionID).Warn().Err(err).Msg("history unavailable, continuing without it")
			history = nil
		}
	}

	doc := document.Restore(sessionID, text, history, s.resolver, s.docOpts...)
	s.registry.Put(doc)
	s.metrics.SetSessions(s.registry.Len())
	s.log.Session(sessionID).Info().Int("paragraphs", doc.Len()).Msg("document restored from store")
	return doc, nil
}

// previousHistory returns the trail of the live document or, when the
// process has not seen the session, whatever the store kept.
func (s *Service) previousHistory(ctx context.Context, sessionID string) []models.EditCommand {
	if doc, ok := s.registry.Get(sessionID); ok {
		return doc.History()
	}
	if s.history == nil {
		return nil
	}
	history, err := s.history.LoadHistory(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Session(sessionID).Warn().Err(err).Msg("history unavailable, starting a new trail")
		}
		return nil
	}
	return history
}

// persist saves the full text and any pending history. A failure leaves the
// session dirty so the next mutation retries, and comes back as a warning.
func (s *Service) persist(ctx context.Context, sessionID string, doc *document.Document, appended []models.EditCommand) string {
	start := time.Now()
	text := doc.FullText()
	pending := s.registry.queue(sessionID, appended)

	err := s.store.SaveDocumentText(ctx, sessionID, text)
	if err == nil && s.history != nil && len(pending) > 0 {
		err = s.history.AppendHistory(ctx, sessionID, pending)
	}
	s.log.LogPersistence(sessionID, len(text), time.Since(start), err)

	if err != nil {
		s.registry.markDirty(sessionID)
		s.metrics.RecordPersistFailure()
		return persistWarning
	}
	s.registry.markSaved(sessionID)
	return ""
}

func (s *Service) failure(op, sessionID string, err error) Result {
	code := errorCode(err)
	s.metrics.RecordEdit(op, "error")

	log := s.log.Session(sessionID)
	event := log.Debug()
	if code == CodeInternal || code == CodePersist {
		event = log.Error()
	}
	event.Err(err).Str("op", op).Msg("edit failed")

	return Result{
		SessionID: sessionID,
		Success:   false,
		Message:   models.UserMessage(err),
		Error:     code,
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, models.ErrNotMatched):
		return CodeNotMatched
	case errors.Is(err, models.ErrParse):
		return CodeParse
	case errors.Is(err, models.ErrGenerationTimeout):
		return CodeTimeout
	case errors.Is(err, models.ErrGenerationFailure):
		return CodeGeneration
	case errors.Is(err, models.ErrPersistence):
		return CodePersist
	}
	return CodeInternal
}
