package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/xhad/escrito/internal/models"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]string
	history   map[string][]models.EditCommand
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]string),
		history:   make(map[string][]models.EditCommand),
	}
}

func (m *MemoryStore) LoadDocumentText(_ context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	text, ok := m.documents[sessionID]
	if !ok {
		return "", fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	return text, nil
}

func (m *MemoryStore) SaveDocumentText(_ context.Context, sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[sessionID] = text
	return nil
}

func (m *MemoryStore) AppendHistory(_ context.Context, sessionID string, entries []models.EditCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[sessionID] = append(m.history[sessionID], entries...)
	return nil
}

func (m *MemoryStore) LoadHistory(_ context.Context, sessionID string) ([]models.EditCommand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.EditCommand, len(m.history[sessionID]))
	copy(out, m.history[sessionID])
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
