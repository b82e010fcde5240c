package types

import (
	"context"

	"github.com/xhad/escrito/internal/models"
)

// Collaborator interfaces. Implementations live in pkg/llm, pkg/store and
// pkg/scraper; tests substitute fakes.

// DocumentStore is the durable record store for document text.
// LoadDocumentText returns an error wrapping models.ErrNotFound when the
// session has never been saved.
type DocumentStore interface {
	LoadDocumentText(ctx context.Context, sessionID string) (string, error)
	SaveDocumentText(ctx context.Context, sessionID, text string) error
}

// HistoryStore is optionally implemented by a DocumentStore that can keep
// the audit trail as well.
type HistoryStore interface {
	AppendHistory(ctx context.Context, sessionID string, entries []models.EditCommand) error
	LoadHistory(ctx context.Context, sessionID string) ([]models.EditCommand, error)
}

// TextGenerator is a single LLM model used to rewrite text.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Drafter produces the first draft of a document.
type Drafter interface {
	Draft(ctx context.Context, req models.DraftRequest) (string, error)
}

// Importer fetches a draft published somewhere else.
type Importer interface {
	Import(ctx context.Context, url string) (models.SourceDocument, error)
}
