package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/store"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	_, err := s.LoadDocumentText(ctx, "sesion-1")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, s.SaveDocumentText(ctx, "sesion-1", "texto"))
	text, err := s.LoadDocumentText(ctx, "sesion-1")
	require.NoError(t, err)
	assert.Equal(t, "texto", text)

	require.NoError(t, s.AppendHistory(ctx, "sesion-1", []models.EditCommand{{ID: "a"}}))
	history, err := s.LoadHistory(ctx, "sesion-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	// callers get a copy
	history[0].ID = "cambiado"
	again, _ := s.LoadHistory(ctx, "sesion-1")
	assert.Equal(t, "a", again[0].ID)
}

func TestOpen(t *testing.T) {
	s, err := store.Open(context.Background(), store.Config{})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	_, err = store.Open(context.Background(), store.Config{Backend: "sqlite"})
	assert.Error(t, err)
}
