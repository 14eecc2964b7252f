// Package postgres keeps the index in a PostgreSQL table using the pgvector
// extension for cosine-distance search.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"wikirag/internal/domain"
	"wikirag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// DefaultTable holds the chunks when no table is configured.
const DefaultTable = "wikirag_chunks"

const undefinedTable = "42P01"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Storage is a vectorstore.Storage backed by a pgxpool.
type Storage struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
	log       zerolog.Logger
}

// New connects to dsn. The table name must be a plain lower-case identifier.
func New(ctx context.Context, dsn, table string, log zerolog.Logger) (*Storage, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q: %w", table, domain.ErrInvalidInput)
	}
	if dsn == "" {
		return nil, errors.New("postgres connection string is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Storage{pool: pool, table: table, log: log}, nil
}

// Reset recreates the table with a vector column of the given dimension.
func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	for _, stmt := range resetStatements(s.table, dimension) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %s: %w", s.table, err)
		}
	}
	s.dimension = dimension
	s.log.Debug().Str("table", s.table).Int("dimension", dimension).Msg("postgres index reset")
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := vectorstore.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.table)
	for i, c := range chunks {
		if _, err := tx.Exec(ctx, query, c.ChunkID, c.DocumentID, c.Index, c.Text, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load checks that the table exists and the server is reachable.
func (s *Storage) Load(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, loadQuery(s.table)); err != nil {
		return s.mapError("load", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	rows, err := s.pool.Query(ctx, searchQuery(s.table), pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, s.mapError("search", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Chunk.ChunkID, &r.Chunk.DocumentID, &r.Chunk.Index, &r.Chunk.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError("search", err)
	}
	return results, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("table %s: %w", s.table, domain.ErrIndexNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, s.table, err)
}

func resetStatements(table string, dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table),
		fmt.Sprintf(`CREATE TABLE %s (
			chunk_id    TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, table, dimension),
	}
}

func loadQuery(table string) string {
	return fmt.Sprintf(`SELECT 1 FROM %s LIMIT 1`, table)
}

// searchQuery returns cosine similarity as the score, so higher is closer.
func searchQuery(table string) string {
	return fmt.Sprintf(`
		SELECT chunk_id, document_id, chunk_index, content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, table)
}
