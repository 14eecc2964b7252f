// Package sqlite persists an index as a single SQLite file in the index
// directory. Vectors are stored as little-endian float32 blobs and searched
// in memory after loading.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"wikirag/internal/domain"
	"wikirag/internal/vectorstore"
	"wikirag/internal/vectorstore/memory"
)

// DBFile is the database file name inside the index directory.
const DBFile = "index.db"

var _ vectorstore.Storage = (*Storage)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	position    INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	chunk_id    TEXT NOT NULL UNIQUE,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL
);
`

// Storage is a vectorstore.Storage backed by dir/index.db.
type Storage struct {
	mu     sync.Mutex
	path   string
	db     *sql.DB
	dim    int
	loaded *memory.Storage
	log    zerolog.Logger
}

// New returns a store rooted at dir. Nothing is opened until first use.
func New(dir string, log zerolog.Logger) *Storage {
	return &Storage{path: filepath.Join(dir, DBFile), log: log}
}

// Reset deletes any existing database and creates an empty one.
func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove old index: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(dimension)); err != nil {
		db.Close()
		return fmt.Errorf("write dimension: %w", err)
	}
	s.db = db
	s.dim = dimension
	s.log.Debug().Str("path", s.path).Int("dimension", dimension).Msg("sqlite index reset")
	return nil
}

// Upsert writes chunks and vectors in one transaction.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}
	if err := vectorstore.CheckBatch(chunks, vectors, s.dim); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_id, chunk_index, text, vector)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.DocumentID, c.ChunkID, c.Index, c.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.loaded = nil
	return nil
}

// Load opens dir/index.db and reads every chunk into memory.
func (s *Storage) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return nil
	}
	return s.loadLocked(ctx)
}

// Search loads the index on first use and ranks chunks by cosine similarity.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	if s.loaded == nil {
		if err := s.loadLocked(ctx); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	loaded := s.loaded
	s.mu.Unlock()

	return loaded.Search(ctx, vector, topK)
}

// Close releases the database handle.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Storage) closeLocked() error {
	s.loaded = nil
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) openLocked() error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", s.path, domain.ErrIndexNotFound)
	}
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	var value string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'dimension'`).Scan(&value); err != nil {
		db.Close()
		return fmt.Errorf("read dimension (%v): %w", err, domain.ErrIndexNotFound)
	}
	dim, err := strconv.Atoi(value)
	if err != nil || dim <= 0 {
		db.Close()
		return fmt.Errorf("bad dimension %q: %w", value, domain.ErrIndexNotFound)
	}
	s.db = db
	s.dim = dim
	return nil
}

func (s *Storage) loadLocked(ctx context.Context) error {
	if err := s.openLocked(); err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT document_id, chunk_id, chunk_index, text, vector FROM chunks ORDER BY position`)
	if err != nil {
		return fmt.Errorf("query chunks (%v): %w", err, domain.ErrIndexNotFound)
	}
	defer rows.Close()

	var (
		chunks  []domain.Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.DocumentID, &c.ChunkID, &c.Index, &c.Text, &blob); err != nil {
			return fmt.Errorf("scan chunk (%v): %w", err, domain.ErrIndexNotFound)
		}
		chunks = append(chunks, c)
		vectors = append(vectors, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate chunks (%v): %w", err, domain.ErrIndexNotFound)
	}

	mem := memory.NewStorage()
	if err := mem.Reset(ctx, s.dim); err != nil {
		return err
	}
	if err := mem.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("load index (%v): %w", err, domain.ErrIndexNotFound)
	}
	s.loaded = mem
	s.log.Debug().Str("path", s.path).Int("chunks", len(chunks)).Msg("sqlite index loaded")
	return nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
