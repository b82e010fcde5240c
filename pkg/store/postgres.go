package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/escrito/internal/models"
)

type PostgresConfig struct {
	ConnString     string
	DocumentsTable string
	HistoryTable   string
	MaxConns       int32
}

// PostgresStore keeps document text and the edit history in PostgreSQL.
type PostgresStore struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

func NewPostgres(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.DocumentsTable == "" {
		config.DocumentsTable = "documents"
	}
	if config.HistoryTable == "" {
		config.HistoryTable = "edit_history"
	}
	if config.MaxConns == 0 {
		config.MaxConns = 10
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConns = config.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ps := &PostgresStore{
		config: config,
		pool:   pool,
	}

	if err := ps.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PostgresStore) initialize(ctx context.Context) error {
	createDocuments := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ps.config.DocumentsTable)

	if _, err := ps.pool.Exec(ctx, createDocuments); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	createHistory := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			anchor TEXT,
			paragraph_number DOUBLE PRECISION,
			new_content TEXT,
			previous_content TEXT,
			instruction TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`, ps.config.HistoryTable)

	if _, err := ps.pool.Exec(ctx, createHistory); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_session_idx
		ON %s (session_id, seq)`,
		ps.config.HistoryTable, ps.config.HistoryTable)

	if _, err := ps.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}

	return nil
}

func (ps *PostgresStore) LoadDocumentText(ctx context.Context, sessionID string) (string, error) {
	query := fmt.Sprintf(`SELECT content FROM %s WHERE session_id = $1`, ps.config.DocumentsTable)

	var content string
	err := ps.pool.QueryRow(ctx, query, sessionID).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load document: %w", err)
	}
	return content, nil
}

func (ps *PostgresStore) SaveDocumentText(ctx context.Context, sessionID, text string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (session_id, content, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at`,
		ps.config.DocumentsTable)

	if _, err := ps.pool.Exec(ctx, stmt, sessionID, sanitizeUTF8(text), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// AppendHistory writes entries in one batch inside a transaction. Entries
// already stored are skipped, so retrying after a partial failure is safe.
func (ps *PostgresStore) AppendHistory(ctx context.Context, sessionID string, entries []models.EditCommand) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, kind, anchor, paragraph_number, new_content, previous_content, instruction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		ps.config.HistoryTable)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(stmt,
			e.ID,
			sessionID,
			string(e.Kind),
			sanitizeUTF8(e.Anchor),
			e.ParagraphNumber,
			sanitizeUTF8(e.NewContent),
			sanitizeUTF8(e.PreviousContent),
			sanitizeUTF8(e.Instruction),
			e.Timestamp,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (ps *PostgresStore) LoadHistory(ctx context.Context, sessionID string) ([]models.EditCommand, error) {
	query := fmt.Sprintf(`
		SELECT id, kind, anchor, paragraph_number, new_content, previous_content, instruction, created_at
		FROM %s
		WHERE session_id = $1
		ORDER BY seq`,
		ps.config.HistoryTable)

	rows, err := ps.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history []models.EditCommand
	for rows.Next() {
		var (
			e    models.EditCommand
			kind string
		)
		err := rows.Scan(
			&e.ID,
			&kind,
			&e.Anchor,
			&e.ParagraphNumber,
			&e.NewContent,
			&e.PreviousContent,
			&e.Instruction,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Kind = models.EditKind(kind)
		e.SessionID = sessionID
		history = append(history, e)
	}

	return history, rows.Err()
}

func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

func (ps *PostgresStore) Close() error {
	if ps.pool != nil {
		ps.pool.Close()
	}
	return nil
}

// sanitizeUTF8 drops invalid bytes; PostgreSQL rejects them in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
